package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Vector is an embedding stored on the row as a JSON array, so the same
// column works on both sqlite and postgres.
type Vector []float32

func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (v *Vector) Scan(src interface{}) error {
	switch s := src.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		return json.Unmarshal(s, v)
	case string:
		return json.Unmarshal([]byte(s), v)
	default:
		return fmt.Errorf("cannot scan %T into Vector", src)
	}
}
