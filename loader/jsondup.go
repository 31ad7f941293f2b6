package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Laisky/errors/v2"

	"github.com/reoring/fixgen/internal/pointer"
)

// JSONDuplicateKeyError reports an object key that occurs twice in a JSON
// document.
type JSONDuplicateKeyError struct {
	Key string
	// Path is the JSON pointer of the object holding the key.
	Path   string
	Offset int64
}

func (e *JSONDuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate JSON key %q in %s at offset %d", e.Key, pointer.Display(e.Path), e.Offset)
}

type jsonFrame struct {
	object    bool
	keys      map[string]bool
	path      string
	wantKey   bool
	lastKey   string
	nextIndex int
}

// child returns the pointer of the value about to be read in f.
func (f *jsonFrame) child() string {
	if f.object {
		return pointer.Join(f.path, f.lastKey)
	}
	p := pointer.Index(f.path, f.nextIndex)
	f.nextIndex++
	return p
}

// checkJSONKeys walks the token stream of data and returns a
// *JSONDuplicateKeyError for the first repeated key.
func checkJSONKeys(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var stack []*jsonFrame

	// valueDone flips the enclosing object back to expecting a key.
	valueDone := func() {
		if n := len(stack); n > 0 && stack[n-1].object {
			stack[n-1].wantKey = true
		}
	}
	open := func(object bool) {
		path := ""
		if n := len(stack); n > 0 {
			path = stack[n-1].child()
		}
		f := &jsonFrame{object: object, path: path, wantKey: object}
		if object {
			f.keys = map[string]bool{}
		}
		stack = append(stack, f)
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "scan JSON")
		}
		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				open(true)
			case '[':
				open(false)
			case '}', ']':
				stack = stack[:len(stack)-1]
				valueDone()
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].wantKey {
				top := stack[n-1]
				if top.keys[v] {
					return &JSONDuplicateKeyError{Key: v, Path: top.path, Offset: dec.InputOffset()}
				}
				top.keys[v] = true
				top.lastKey = v
				top.wantKey = false
				continue
			}
			if n := len(stack); n > 0 && !stack[n-1].object {
				stack[n-1].nextIndex++
			}
			valueDone()
		default:
			if n := len(stack); n > 0 && !stack[n-1].object {
				stack[n-1].nextIndex++
			}
			valueDone()
		}
	}
}
