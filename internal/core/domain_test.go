package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDedupeCollapsesNameAndTotal(t *testing.T) {
	a := Invoice{Name: "a.xml", Total: dec("100.00"), IssuerRFC: "AAA010101AAA"}
	dup := Invoice{Name: "a.xml", Total: dec("100"), IssuerRFC: "BBB010101BBB", UsageCode: "G03"}
	other := Invoice{Name: "a.xml", Total: dec("100.01")}

	set := Dedupe([]Invoice{a, dup, other})
	require.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(dup))

	// first seen wins
	for _, inv := range set.Invoices() {
		if inv.Total.Equal(dec("100")) {
			assert.Equal(t, "AAA010101AAA", inv.IssuerRFC)
		}
	}
}

func TestDedupeEmpty(t *testing.T) {
	set := Dedupe(nil)
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Invoices())
}

func TestInvoiceEqualIgnoresOtherFields(t *testing.T) {
	a := Invoice{Name: "x", Total: dec("5.5"), Tax: dec("1")}
	b := Invoice{Name: "x", Total: dec("5.50"), Tax: dec("2"), Concepts: []string{"c"}}
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())

	c := Invoice{Name: "y", Total: dec("5.5")}
	assert.False(t, a.Equal(c))
}

func TestInvoicesOrdering(t *testing.T) {
	set := NewRecordSet(
		Invoice{Name: "b", Total: dec("1")},
		Invoice{Name: "a", Total: dec("10")},
		Invoice{Name: "a", Total: dec("2")},
	)
	got := set.Invoices()
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Name)
	assert.True(t, got[0].Total.Equal(dec("2")))
	assert.Equal(t, "a", got[1].Name)
	assert.Equal(t, "b", got[2].Name)
}

func TestConceptKey(t *testing.T) {
	cases := []struct {
		concepts []string
		want     string
	}{
		{nil, ""},
		{[]string{"Gasolina"}, "Gasolina"},
		{[]string{"Gasolina", "Aceite"}, "Gasolina, Aceite"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Invoice{Concepts: tc.concepts}.ConceptKey())
	}
}
