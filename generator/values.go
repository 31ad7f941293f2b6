package generator

import "github.com/reoring/fixgen/rng"

// cloneValue deep-copies JSON containers so that generated values never
// alias schema literals.
func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	default:
		return v
	}
}

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz"
	alnum    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// randomWord returns n characters drawn from the lowercase alphabet.
func randomWord(r *rng.Stream, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(b)
}
