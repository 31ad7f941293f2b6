// Package format generates and checks the well-known string formats
// (email, uri, uuid, date-time).
//
// A Registry keeps one counter per format. The Nth value of format F is drawn
// from the stream keyed by "format:F:N" under the registry seed, so a
// registry replays the same sequence for the same seed and never repeats a
// key until Reset.
package format

import (
	"net/mail"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"

	"github.com/reoring/fixgen/rng"
)

// Format names.
const (
	Email    = "email"
	URI      = "uri"
	UUID     = "uuid"
	DateTime = "date-time"
)

// ErrUnsupportedFormat is returned for names the registry has no generator for.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Epoch is the fixed origin of generated date-time values.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

type generateFunc func(s *rng.Stream) (string, error)

var generators = map[string]generateFunc{
	Email:    genEmail,
	URI:      genURI,
	UUID:     genUUID,
	DateTime: genDateTime,
}

// Supported reports whether name has a generator.
func Supported(name string) bool {
	_, ok := generators[name]
	return ok
}

// Names lists the supported formats in lexical order.
func Names() []string {
	out := make([]string, 0, len(generators))
	for k := range generators {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Registry is the per-run format generator. It is not safe for concurrent
// use; each generation run owns its own registry.
type Registry struct {
	seed     uint32
	counters map[string]int
}

// NewRegistry returns a registry whose streams derive from seed.
func NewRegistry(seed uint32) *Registry {
	return &Registry{seed: seed, counters: map[string]int{}}
}

// Generate returns the next value of the named format.
func (r *Registry) Generate(name string) (string, error) {
	gen, ok := generators[name]
	if !ok {
		return "", errors.Wrapf(ErrUnsupportedFormat, "format %q", name)
	}
	n := r.counters[name]
	r.counters[name] = n + 1
	return gen(rng.New(r.seed, Key(name, n)))
}

// Count reports how many values of name were generated since the last reset.
func (r *Registry) Count(name string) int { return r.counters[name] }

// Reset zeroes every counter, restarting all sequences.
func (r *Registry) Reset() {
	for k := range r.counters {
		delete(r.counters, k)
	}
}

// Key is the stream path of the nth value of a format.
func Key(name string, n int) string {
	return "format:" + name + ":" + strconv.Itoa(n)
}

const (
	lowerAlpha = "abcdefghijklmnopqrstuvwxyz"
	lowerAlnum = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	mailDomains = []string{"acme", "mail", "corp", "test", "sample"}
	uriHosts    = []string{"api", "www", "static", "docs", "app"}
)

func word(s *rng.Stream, minLen, maxLen int) string {
	n := minLen + s.Intn(maxLen-minLen+1)
	b := make([]byte, n)
	b[0] = lowerAlpha[s.Intn(len(lowerAlpha))]
	for i := 1; i < n; i++ {
		b[i] = lowerAlnum[s.Intn(len(lowerAlnum))]
	}
	return string(b)
}

func genEmail(s *rng.Stream) (string, error) {
	local := word(s, 3, 10)
	domain := mailDomains[s.Intn(len(mailDomains))]
	return local + "@" + domain + ".example", nil
}

func genURI(s *rng.Stream) (string, error) {
	host := uriHosts[s.Intn(len(uriHosts))]
	return "https://" + host + ".example/" + word(s, 2, 12), nil
}

func genUUID(s *rng.Stream) (string, error) {
	id, err := uuid.NewRandomFromReader(s)
	if err != nil {
		return "", errors.Wrap(err, "generate uuid")
	}
	// NewRandomFromReader already sets these; keep the RFC 4122 v4 layout
	// explicit so the output does not depend on the library version.
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80
	return id.String(), nil
}

func genDateTime(s *rng.Stream) (string, error) {
	day := int(s.Next() % 365)
	sec := int(s.Next() % 86400)
	t := Epoch.AddDate(0, 0, day).Add(time.Duration(sec) * time.Second)
	return t.Format(time.RFC3339), nil
}

// Validate checks s against the named format. Unknown formats return
// ErrUnsupportedFormat.
func Validate(name, s string) error {
	switch name {
	case Email:
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s || addr.Name != "" {
			return errors.Errorf("%q is not a valid email address", s)
		}
		at := strings.LastIndexByte(s, '@')
		if at <= 0 || at == len(s)-1 {
			return errors.Errorf("%q is not a valid email address", s)
		}
	case URI:
		u, err := url.Parse(s)
		if err != nil {
			return errors.Wrapf(err, "%q is not a valid uri", s)
		}
		if u.Scheme == "" {
			return errors.Errorf("%q is not an absolute uri", s)
		}
	case UUID:
		if len(s) != 36 {
			return errors.Errorf("%q is not a hyphenated uuid", s)
		}
		if _, err := uuid.Parse(s); err != nil {
			return errors.Wrapf(err, "%q is not a valid uuid", s)
		}
	case DateTime:
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return errors.Wrapf(err, "%q is not a valid date-time", s)
		}
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "format %q", name)
	}
	return nil
}
