package infra

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
)

// Balances and ledger amounts are whole cents stored in NUMERIC(20,0)
// columns. These two helpers are the only crossing point between pgtype
// and the int64 cents used everywhere else.

// NumericToInt64 converts a scanned NUMERIC(20,0) value to cents. NULL,
// fractional digits surviving the exponent, and int64 overflow are all
// errors rather than silent truncation.
func NumericToInt64(n pgtype.Numeric) (int64, error) {
	if !n.Valid {
		return 0, fmt.Errorf("numeric value is NULL")
	}

	// pgtype stores the value as Int * 10^Exp.
	cents := new(big.Int).Set(n.Int)
	switch {
	case n.Exp > 0:
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil)
		cents.Mul(cents, scale)
	case n.Exp < 0:
		// A scale-0 column never produces this; truncate if it ever does.
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil)
		cents.Div(cents, scale)
	}

	if !cents.IsInt64() {
		return 0, fmt.Errorf("numeric value %s overflows int64", cents.String())
	}
	return cents.Int64(), nil
}

// Int64ToNumeric wraps cents for writing to a NUMERIC(20,0) column.
func Int64ToNumeric(cents int64) pgtype.Numeric {
	return pgtype.Numeric{
		Int:              big.NewInt(cents),
		Exp:              0,
		InfinityModifier: pgtype.Finite,
		Valid:            true,
	}
}
