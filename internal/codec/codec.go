// Package codec implements the canonical JSON encoding used for hashing and
// for the persisted save format: object keys sorted lexicographically, a
// compact form for content addressing, and a 2-space indented form for
// human-readable saves.
package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Canonicalize re-encodes an arbitrary JSON-marshalable value into its
// canonical compact form: object keys sorted, no insignificant whitespace.
// Every payload that contributes to a hash MUST pass through this function
// first.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("codec: decode: %w", err)
	}
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Indented re-encodes v using the persisted-save textual form: canonical key
// ordering with 2-space indentation.
func Indented(v any) ([]byte, error) {
	compact, err := Canonicalize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("codec: indent: %w", err)
	}
	return buf.Bytes(), nil
}

// Hash returns the SHA-256 hex digest of the canonical encoding of v.
func Hash(v any) (string, error) {
	compact, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(compact)
	return hex.EncodeToString(sum[:]), nil
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case json.Number:
		buf.WriteString(val.String())
		return nil
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(encoded)
		return nil
	}
}

// IsIntegral reports whether a decoded JSON number is an integer literal
// that fits in an int64, used to enforce the integer-only topology-parameter
// rule. Any number written with a decimal point or exponent (3.0, 3.5, 1e3)
// or outside the int64 range is reported as not integral.
func IsIntegral(n json.Number) bool {
	if _, err := n.Int64(); err == nil {
		return true
	}
	return false
}

// RejectFloats walks a decoded JSON value (maps/slices/json.Number) and
// returns an error if any number fails IsIntegral (so 3.0 is rejected as
// well as 3.5). Used to
// forbid floats inside content-addressed payloads whose schema declares
// integer-only fields (topology params, hex coordinates).
func RejectFloats(v any) error {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			if err := RejectFloats(item); err != nil {
				return fmt.Errorf("%s.%w", k, err)
			}
		}
	case []any:
		for i, item := range val {
			if err := RejectFloats(item); err != nil {
				return fmt.Errorf("[%d]%w", i, err)
			}
		}
	case json.Number:
		if !IsIntegral(val) {
			return fmt.Errorf(": non-integer value %s not permitted", val.String())
		}
	}
	return nil
}

// DecodeStrict decodes raw JSON into a generic value using json.Number so
// integers are never silently widened to float64, then validates it with
// RejectFloats when strict is true.
func DecodeStrict(raw []byte, strict bool) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if strict {
		if err := RejectFloats(v); err != nil {
			return nil, fmt.Errorf("codec: integer-only payload%w", err)
		}
	}
	return v, nil
}
