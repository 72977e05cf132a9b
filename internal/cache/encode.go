package cache

import (
	"bytes"
	"fmt"

	"github.com/dual/doubletake/internal/graph"
)

// encodeValue serializes a synthetic value for backend storage. The
// kind is carried explicitly because JSON alone cannot distinguish an
// integral Float from an Int.
func encodeValue(v graph.Value) ([]byte, error) {
	body, err := graph.ToJSON(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(graph.Kind(v)+":"), body...), nil
}

// decodeValue reverses encodeValue.
func decodeValue(data []byte) (graph.Value, error) {
	idx := bytes.IndexByte(data, ':')
	if idx < 0 {
		return nil, fmt.Errorf("malformed cache payload")
	}
	kind, body := string(data[:idx]), data[idx+1:]

	v, err := graph.FromJSON(body)
	if err != nil {
		return nil, fmt.Errorf("decode cache payload: %w", err)
	}

	// Restore Float-ness lost to JSON's single number type.
	if kind == "float" {
		if n, ok := v.(graph.Int); ok {
			v = graph.Float(n)
		}
	}
	if got := graph.Kind(v); got != kind {
		return nil, fmt.Errorf("cache payload kind %q decoded as %s", kind, got)
	}
	return v, nil
}
