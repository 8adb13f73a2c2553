package objective

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
)

var ErrInvalidID = errors.New("objective id must be a string or a number")

// ID is an opaque objective identifier. Upstream APIs emit it either as a
// JSON string or as a number; both decode to the same textual form.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.Wrap(ErrInvalidID, string(data))
		}
		*id = ID(n.String())
		return nil
	}
}

type Objective struct {
	ID       ID     `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Code     string `json:"code" yaml:"code"`
	IsActive bool   `json:"is_active" yaml:"is_active"`
}

type Repository interface {
	ListActive(ctx context.Context) ([]Objective, error)
}
