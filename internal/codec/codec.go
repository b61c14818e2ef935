// Package codec maps collection elements to and from the strings stored in
// Redis. A list or map adapter is parameterized by one Codec; raw strings use
// the identity codec String.
package codec

import (
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Codec is a bidirectional mapping between elements and their stored form.
// Decode(Encode(v)) must equal v for every v the codec accepts.
type Codec[T any] interface {
	Encode(v T) (string, error)
	Decode(s string) (T, error)
}

// String is the identity codec.
type String struct{}

func (String) Encode(v string) (string, error) { return v, nil }
func (String) Decode(s string) (string, error) { return s, nil }

// NormalizedString stores strings in Unicode NFC so that canonically
// equivalent spellings ("é" as one rune or as "e" + combining accent) are the
// same element for server-side search and removal.
type NormalizedString struct{}

func (NormalizedString) Encode(v string) (string, error) { return norm.NFC.String(v), nil }
func (NormalizedString) Decode(s string) (string, error) { return norm.NFC.String(s), nil }

// Int stores integers in base 10, the format the original hash adapter used
// for its counters.
type Int struct{}

func (Int) Encode(v int) (string, error) { return strconv.Itoa(v), nil }

func (Int) Decode(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("decode int %q: %w", s, err)
	}
	return v, nil
}

// JSON stores any JSON-marshalable value.
type JSON[T any] struct{}

func (JSON[T]) Encode(v T) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(b), nil
}

func (JSON[T]) Decode(s string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return v, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// Func adapts a pair of functions to a Codec.
type Func[T any] struct {
	EncodeFunc func(T) (string, error)
	DecodeFunc func(string) (T, error)
}

func (f Func[T]) Encode(v T) (string, error) { return f.EncodeFunc(v) }
func (f Func[T]) Decode(s string) (T, error) { return f.DecodeFunc(s) }

// EncodeAll encodes values in order, stopping at the first failure.
func EncodeAll[T any](c Codec[T], values []T) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		s, err := c.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("encode element %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// DecodeAll decodes raw values in order, stopping at the first failure.
func DecodeAll[T any](c Codec[T], raw []string) ([]T, error) {
	out := make([]T, len(raw))
	for i, s := range raw {
		v, err := c.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("decode element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
