package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testTables() Tables {
	return Tables{
		UnitStatus: map[string]string{
			"1.disponible":    UnitAvailable,
			"2.reserva":       UnitReserved,
			"2. reserva":      UnitReserved,
			"2,reserva":       UnitReserved,
			"4.plan de pagos": UnitSold,
			"desistimiento":   UnitCancelled,
		},
		SaleStatus: map[string]string{
			"2.reserva":       SaleActive,
			"2. reserva":      SaleActive,
			"2,reserva":       SaleActive,
			"4.plan de pagos": SaleActive,
			"desistimiento":   SaleCancelled,
		},
		Reps: map[string]string{
			"ronaldo":         "Ronaldo Ogaldez",
			"ronaldo ogaldez": "Ronaldo Ogaldez",
			"ricardo o.":      "Ricardo O.",
			"**":              "",
			"sin datos":       "",
		},
	}
}

func TestUnitStatus(t *testing.T) {
	n := New(testTables())

	require.Equal(t, UnitReserved, n.UnitStatus("2.Reserva"))
	require.Equal(t, UnitReserved, n.UnitStatus("  2, RESERVA  "))
	require.Equal(t, UnitSold, n.UnitStatus("4.Plan de Pagos"))
	require.Equal(t, UnitCancelled, n.UnitStatus("Desistimiento"))

	// Blank and unrecognized both default to available.
	require.Equal(t, UnitAvailable, n.UnitStatus(""))
	require.Equal(t, UnitAvailable, n.UnitStatus("9.inventado"))
}

func TestHasUnitStatus(t *testing.T) {
	n := New(testTables())

	require.True(t, n.HasUnitStatus("2.reserva"))
	require.True(t, n.HasUnitStatus(" Desistimiento "))
	require.True(t, n.HasUnitStatus(""), "blank resolves via the default")
	require.False(t, n.HasUnitStatus("9.inventado"))
}

func TestSaleStatusGatesSaleExistence(t *testing.T) {
	n := New(testTables())

	require.Equal(t, SaleActive, n.SaleStatus("2.reserva"))
	require.Equal(t, SaleCancelled, n.SaleStatus("DESISTIMIENTO"))

	// Availability and unknown statuses yield no sale.
	require.Equal(t, "", n.SaleStatus("1.disponible"))
	require.Equal(t, "", n.SaleStatus(""))
	require.Equal(t, "", n.SaleStatus("9.inventado"))
}

func TestRepName(t *testing.T) {
	n := New(testTables())

	require.Equal(t, "Ronaldo Ogaldez", n.RepName("RONALDO"))
	require.Equal(t, "Ronaldo Ogaldez", n.RepName(" ronaldo ogaldez "))
	require.Equal(t, "Ricardo O.", n.RepName("Ricardo O."))

	// Sentinels mean "no rep".
	require.Equal(t, "", n.RepName("**"))
	require.Equal(t, "", n.RepName("Sin Datos"))
	require.Equal(t, "", n.RepName("   "))

	// Unregistered names pass through trimmed, not rejected.
	require.Equal(t, "María Nueva", n.RepName("  María Nueva "))
}

func TestNormalizerCopiesTables(t *testing.T) {
	tables := testTables()
	n := New(tables)

	tables.UnitStatus["2.reserva"] = "corrupted"
	tables.Reps["ronaldo"] = "corrupted"

	require.Equal(t, UnitReserved, n.UnitStatus("2.reserva"))
	require.Equal(t, "Ronaldo Ogaldez", n.RepName("ronaldo"))
}
