package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RecordID identifies a record within its collection.
type RecordID string

// NewRecordID returns a time-ordered identifier (UUIDv7).
func NewRecordID() RecordID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		return RecordID(uuid.NewString())
	}
	return RecordID(id.String())
}

func (id RecordID) String() string { return string(id) }

// UnmarshalJSON accepts a string or a bare number. Older backups used
// epoch-millisecond numbers as identifiers.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id must be a string or number: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}
