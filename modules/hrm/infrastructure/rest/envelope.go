package rest

import (
	"bytes"
	"encoding/json"

	"github.com/go-faster/errors"
)

var ErrUnknownEnvelope = errors.New("unrecognized response envelope")

// listKeys are the object keys a list payload may be nested under.
var listKeys = []string{"data", "results", "items", "kpis"}

// NormalizeList extracts the ordered items of a list response. Accepted
// shapes: a bare array, an object holding the array under one of listKeys,
// and any such object nested once under "data".
func NormalizeList(raw []byte) ([]json.RawMessage, error) {
	return normalizeList(bytes.TrimSpace(raw), 0)
}

func normalizeList(raw []byte, depth int) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, ErrUnknownEnvelope
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, errors.Wrap(err, "decode list")
		}
		if items == nil {
			items = []json.RawMessage{}
		}
		return items, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, errors.Wrap(err, "decode envelope")
		}
		for _, key := range listKeys {
			v, ok := obj[key]
			if !ok {
				continue
			}
			v = bytes.TrimSpace(v)
			if len(v) > 0 && v[0] == '[' {
				return normalizeList(v, depth)
			}
			if key == "data" && depth == 0 && len(v) > 0 && v[0] == '{' {
				return normalizeList(v, depth+1)
			}
		}
	}
	return nil, ErrUnknownEnvelope
}

// DecodeList normalizes raw and decodes every item into T.
func DecodeList[T any](raw []byte) ([]T, error) {
	items, err := NormalizeList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, errors.Wrapf(err, "decode item %d", i)
		}
		out = append(out, v)
	}
	return out, nil
}
