package postgres

import (
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
)

// numeric carries a full-range uint64 into a NUMERIC column; BIGINT would reject values above 2^63-1.
func numeric(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}
