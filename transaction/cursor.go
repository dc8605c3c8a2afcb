package transaction

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/pennywise/ledger/id"
)

// Cursor is the opaque (date, id) boundary of a page of transaction
// listings. EncodeCursor/DecodeCursor are the only places that know its
// wire shape; callers must treat the string as opaque.
type Cursor struct {
	Date time.Time
	ID   id.ID
}

// EncodeCursor renders the boundary row of a page as an opaque,
// URL-safe string.
func EncodeCursor(date time.Time, txID id.ID) string {
	raw := date.UTC().Format(time.RFC3339Nano) + "|" + txID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses EncodeCursor. Per spec.md §4.F, an invalid or
// corrupt cursor degrades to "no cursor" rather than an error: the
// second return value is false whenever raw fails to decode cleanly.
func DecodeCursor(raw string) (Cursor, bool) {
	if raw == "" {
		return Cursor{}, false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return Cursor{}, false
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return Cursor{}, false
	}
	date, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, false
	}
	txID, err := id.Parse(parts[1])
	if err != nil {
		return Cursor{}, false
	}
	return Cursor{Date: date, ID: txID}, true
}
