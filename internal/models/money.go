package models

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is a currency amount in minor units (cents). Arithmetic on Money is
// exact; the decimal form only exists at the JSON boundary.
type Money int64

const minorDigits = 2

var (
	minMinor = decimal.NewFromInt(math.MinInt64)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// NewMoney converts a decimal amount to minor units. Amounts with more than
// two fraction digits or outside the int64 minor-unit range are rejected.
func NewMoney(d decimal.Decimal) (Money, error) {
	shifted := d.Shift(minorDigits)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d fraction digits", d.String(), minorDigits)
	}
	if shifted.LessThan(minMinor) || shifted.GreaterThan(maxMinor) {
		return 0, fmt.Errorf("amount %s is out of range", d.String())
	}
	return Money(shifted.IntPart()), nil
}

// MaxUnits is the largest whole amount MoneyFromUnits accepts.
const MaxUnits = math.MaxInt64 / 100

// MaxTicketPrice keeps the largest payout, a little over twice the price,
// representable in minor units.
const MaxTicketPrice Money = MaxUnits / 3 * 100

// MoneyFromUnits returns whole currency units as Money. It panics when the
// result would not fit in int64; callers pass bounded amounts.
func MoneyFromUnits(units int64) Money {
	if units > MaxUnits || units < -MaxUnits {
		panic(fmt.Sprintf("money: %d units overflows int64 minor units", units))
	}
	return Money(units * 100)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -minorDigits)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(minorDigits)
}

// MarshalJSON writes the amount as a JSON number with two fraction digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", data, err)
	}
	v, err := NewMoney(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Value implements driver.Valuer so Money is stored as BIGINT minor units.
func (m Money) Value() (driver.Value, error) {
	return int64(m), nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*m = Money(v)
	case nil:
		*m = 0
	case []byte:
		return m.Scan(string(v))
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		if !d.Equal(d.Truncate(0)) || d.LessThan(minMinor) || d.GreaterThan(maxMinor) {
			return fmt.Errorf("cannot scan %q into Money", v)
		}
		*m = Money(d.IntPart())
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
	return nil
}
