package sqlutil

import (
	"encoding/json"
	"fmt"

	"github.com/sqlc-dev/pqtype"
)

// ToNullRawMessage marshals v into a JSON column value. A nil v is SQL NULL.
func ToNullRawMessage(v any) (pqtype.NullRawMessage, error) {
	if v == nil {
		return pqtype.NullRawMessage{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("marshal json column: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}

// FromNullRawMessage unmarshals a JSON column into v, leaving v untouched on NULL.
func FromNullRawMessage(col pqtype.NullRawMessage, v any) error {
	if !col.Valid || len(col.RawMessage) == 0 {
		return nil
	}
	if err := json.Unmarshal(col.RawMessage, v); err != nil {
		return fmt.Errorf("unmarshal json column: %w", err)
	}
	return nil
}
