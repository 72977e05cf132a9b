package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Canonical produces a deterministic byte encoding of a value, used by
// the consistency cache to key originals and index issued synthetics.
// Two values that differ only in key iteration order or Unicode
// normalization form encode identically.
//
// Not a wire format: the output never leaves the process (the cache
// hashes it before persisting).
func Canonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := canonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func canonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("nil Value in graph")
	case Null:
		buf.WriteString("null")
		return nil
	case String:
		return canonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
		return nil
	case Float:
		// Shortest round-trippable form, stable across encodes.
		buf.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 64))
		return nil
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
		return nil
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := canonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := canonicalString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := canonical(buf, val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
}

// canonicalString writes an NFC-normalized JSON string without HTML
// escaping. Normalizing at the encoding boundary keeps composed and
// decomposed forms of the same text from producing distinct cache keys.
func canonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}

	// json.Encoder appends a trailing newline, drop it.
	if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] == '\n' {
		buf.Truncate(buf.Len() - 1)
	}
	return nil
}
