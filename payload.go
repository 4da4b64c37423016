package medaware

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/render"
)

// Payload is a decoded JSON request body. Field presence matters for partial
// updates, so bodies are decoded into a map rather than a struct.
type Payload map[string]any

// DecodePayload reads a JSON object from the request body. A missing body or an
// empty object yields ErrEmptyBody.
func DecodePayload(r *http.Request) (Payload, error) {
	p, err := DecodeObject(r)
	if err != nil {
		return nil, err
	}

	if len(p) == 0 {
		return nil, ErrEmptyBody
	}

	return p, nil
}

// DecodeObject is DecodePayload for bodies whose fields are all optional: an
// empty object decodes to an empty Payload. Only a missing body is ErrEmptyBody.
func DecodeObject(r *http.Request) (Payload, error) {
	if r.Body == nil {
		return nil, ErrEmptyBody
	}

	var p Payload
	if err := render.DecodeJSON(r.Body, &p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBody
		}

		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	if p == nil {
		p = Payload{}
	}

	return p, nil
}

func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the value of key when it is a string. Absent keys and nulls
// return "" with no error.
func (p Payload) String(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", nil
	}

	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}

	return s, nil
}

// RequiredString is String but rejects missing or empty values.
func (p Payload) RequiredString(key string) (string, error) {
	s, err := p.String(key)
	if err != nil {
		return "", err
	}

	if s == "" {
		return "", fmt.Errorf("%s is required", key)
	}

	return s, nil
}

// StringList returns the value of key as a list of strings. A missing key yields
// an empty list.
func (p Payload) StringList(key string) (StringList, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return StringList{}, nil
	}

	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array", key)
	}

	out := make(StringList, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case float64, bool:
			out = append(out, fmt.Sprint(s))
		default:
			return nil, fmt.Errorf("%s must be an array of strings", key)
		}
	}

	return out, nil
}

// Int converts numbers and numeric strings to an int. Fractional numbers are
// truncated; fractional strings are rejected.
func (p Payload) Int(key string) (int, error) {
	return ParseInt(p[key])
}

var ErrNotANumber = errors.New("not a valid number")

func ParseInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, ErrNotANumber
		}

		return int(n), nil
	case int:
		return n, nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, ErrNotANumber
		}

		return i, nil
	default:
		return 0, ErrNotANumber
	}
}
