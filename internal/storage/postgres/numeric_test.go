package postgres

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumericKeepsFullRange(t *testing.T) {
	n := numeric(math.MaxUint64)
	require.True(t, n.Valid)
	require.Zero(t, n.Exp)
	require.Equal(t, "18446744073709551615", n.Int.String())

	require.Equal(t, "0", numeric(0).Int.String())
}
