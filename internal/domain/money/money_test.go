package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func TestReconcile_Exact(t *testing.T) {
	err := Reconcile(d(t, "100.00"), d(t, "100.00"), "EUR", DefaultTolerance)
	require.NoError(t, err)
}

func TestReconcile_WithinTolerance(t *testing.T) {
	err := Reconcile(d(t, "100.00"), d(t, "100.01"), "EUR", DefaultTolerance)
	require.NoError(t, err)

	err = Reconcile(d(t, "100.01"), d(t, "100.00"), "EUR", DefaultTolerance)
	require.NoError(t, err)
}

func TestReconcile_BeyondTolerance(t *testing.T) {
	err := Reconcile(d(t, "100.00"), d(t, "100.02"), "EUR", DefaultTolerance)

	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
	assert.True(t, d(t, "100.00").Equal(mm.Expected))
	assert.True(t, d(t, "100.02").Equal(mm.Received))
	assert.Equal(t, "EUR", mm.Currency)
}

func TestReconcile_ZeroMinorUnitCurrency(t *testing.T) {
	// JPY has no minor unit: tolerance of 1 means one whole yen.
	require.NoError(t, Reconcile(d(t, "500"), d(t, "501"), "JPY", DefaultTolerance))

	err := Reconcile(d(t, "500"), d(t, "502"), "JPY", DefaultTolerance)
	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
}

func TestReconcile_RoundsBeforeComparing(t *testing.T) {
	// Sub-minor-unit noise from upstream systems must not trip reconciliation.
	require.NoError(t, Reconcile(d(t, "50.99"), d(t, "50.994"), "EUR", DefaultTolerance))
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int32(2), MinorUnits("EUR"))
	assert.Equal(t, int32(2), MinorUnits("USD"))
	assert.Equal(t, int32(0), MinorUnits("JPY"))
	assert.Equal(t, int32(0), MinorUnits("KRW"))
}

func TestParse(t *testing.T) {
	v, err := Parse("50.99")
	require.NoError(t, err)
	assert.True(t, d(t, "50.99").Equal(v))

	_, err = Parse("")
	require.Error(t, err)

	_, err = Parse("not-a-number")
	require.Error(t, err)
}
