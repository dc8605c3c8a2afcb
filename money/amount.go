/*
Package money provides a fixed-point decimal amount type used throughout
the ledger engines.

No float64 ever participates in a monetary computation. Amount wraps
decimal.Decimal, pinned to a scale of 2 (cents) and a 15-digit precision
ceiling, matching the DECIMAL(15,2) column the original accounting
service stored amounts in.
*/
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// Scale is the number of digits kept after the decimal point.
	Scale = 2
	// MaxDigits is the total number of significant digits an Amount may carry.
	MaxDigits = 15
)

// Amount is a scale-2 decimal quantity. The zero value is zero.
type Amount struct {
	v decimal.Decimal
}

var Zero = Amount{v: decimal.Zero}

// New builds an Amount from a decimal.Decimal, rounding to Scale and
// rejecting values that would overflow MaxDigits significant digits.
func New(d decimal.Decimal) (Amount, error) {
	rounded := d.Round(Scale)
	if digits(rounded) > MaxDigits {
		return Amount{}, fmt.Errorf("money: %s exceeds %d digit precision", rounded.String(), MaxDigits)
	}
	return Amount{v: rounded}, nil
}

// MustNew is New but panics on error; only safe for compile-time constants.
func MustNew(d decimal.Decimal) Amount {
	a, err := New(d)
	if err != nil {
		panic(err)
	}
	return a
}

// Parse parses a decimal string (e.g. "42.50") into an Amount.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return New(d)
}

// FromCents builds an Amount from an integer cent count.
func FromCents(cents int64) Amount {
	return Amount{v: decimal.New(cents, -Scale)}
}

func digits(d decimal.Decimal) int {
	coeff := d.Coefficient()
	s := coeff.Abs().String()
	if s == "0" {
		return 1
	}
	return len(s)
}

func (a Amount) Decimal() decimal.Decimal { return a.v }

func (a Amount) Add(b Amount) Amount { return Amount{v: a.v.Add(b.v)} }
func (a Amount) Sub(b Amount) Amount { return Amount{v: a.v.Sub(b.v)} }
func (a Amount) Neg() Amount         { return Amount{v: a.v.Neg()} }

// Mul multiplies by an integer factor and re-rounds to Scale.
func (a Amount) Mul(factor int64) Amount {
	return Amount{v: a.v.Mul(decimal.NewFromInt(factor)).Round(Scale)}
}

// DivRound divides into n equal parts, rounding each to Scale. The caller
// is responsible for adding any leftover remainder back to one part (see
// installment splitting in the scheduler package).
func (a Amount) DivRound(n int64) Amount {
	return Amount{v: a.v.DivRound(decimal.NewFromInt(n), Scale)}
}

func (a Amount) IsZero() bool     { return a.v.IsZero() }
func (a Amount) IsNegative() bool { return a.v.IsNegative() }
func (a Amount) IsPositive() bool { return a.v.IsPositive() }

func (a Amount) GreaterThan(b Amount) bool { return a.v.GreaterThan(b.v) }
func (a Amount) LessThan(b Amount) bool    { return a.v.LessThan(b.v) }
func (a Amount) Equal(b Amount) bool       { return a.v.Equal(b.v) }

func (a Amount) String() string { return a.v.StringFixed(Scale) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.StringFixed(Scale) + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("money: unmarshal %q: %w", s, err)
	}
	parsed, err := New(d)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer so Amount can be written directly by
// database/sql as a string (TEXT column), matching the sqlite store's
// other TEXT-encoded scalar types.
func (a Amount) Value() (driver.Value, error) {
	return a.v.StringFixed(Scale), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*a = Zero
		return nil
	default:
		return fmt.Errorf("money: cannot scan %T into Amount", src)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("money: scan %q: %w", s, err)
	}
	parsed, err := New(d)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
