/*
Package id provides the 128-bit identifier type shared by every domain
entity, backed by google/uuid rather than the teacher's plain string
type aliases — the accounting domain has no natural human-assigned key
equivalent to an employee ID, so every entity gets a generated one.
*/
package id

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// ID is an opaque 128-bit identifier rendered as its canonical
// 36-character UUID string form wherever it crosses a boundary (JSON,
// SQL, logs).
type ID uuid.UUID

var Nil ID

// New generates a random (v4) ID.
func New() ID {
	return ID(uuid.New())
}

// Parse parses a canonical UUID string into an ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID(u), nil
}

// MustParse is Parse but panics on error; for tests and constants only.
func MustParse(s string) ID {
	i, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return i
}

func (i ID) String() string { return uuid.UUID(i).String() }

func (i ID) IsNil() bool { return i == Nil }

func (i ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + i.String() + `"`), nil
}

func (i *ID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*i = Nil
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

func (i ID) Value() (driver.Value, error) {
	if i.IsNil() {
		return nil, nil
	}
	return i.String(), nil
}

func (i *ID) Scan(src interface{}) error {
	if src == nil {
		*i = Nil
		return nil
	}
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
