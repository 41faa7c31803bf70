package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ConceptSeparator joins the line-item descriptions of one invoice into a
// single grouping key.
const ConceptSeparator = ", "

type (
	// Invoice is the normalized record extracted from one CFDI document.
	Invoice struct {
		Name       string // source label, usually the uploaded file name
		IssuerRFC  string
		IssuerName string
		Concepts   []string
		Total      decimal.Decimal
		IssueDate  string // raw Fecha attribute, parsed on demand by ParsePeriod
		Tax        decimal.Decimal
		UsageCode  string
	}

	// Key identifies an Invoice inside a RecordSet.
	Key struct {
		Name  string
		Total string
	}

	// RecordSet is a deduplicated, unordered collection of invoices.
	RecordSet struct {
		items map[Key]Invoice
	}
)

// Key returns the identity of the invoice. Only Name and Total take part:
// two documents with the same name and total are the same invoice even if
// issuer, concepts, date, tax or usage differ.
func (i Invoice) Key() Key {
	// String trims trailing zeros, so 100 and 100.00 share a key.
	return Key{Name: i.Name, Total: i.Total.String()}
}

// Equal reports whether two invoices share the same identity.
func (i Invoice) Equal(o Invoice) bool {
	return i.Name == o.Name && i.Total.Equal(o.Total)
}

// ConceptKey joins all concepts into one composite key. Multi-concept
// invoices are not exploded; an invoice without concepts yields "".
func (i Invoice) ConceptKey() string {
	return strings.Join(i.Concepts, ConceptSeparator)
}

// Period parses IssueDate into a year and month.
func (i Invoice) Period() Period {
	return ParsePeriod(i.IssueDate)
}

// Dedupe reduces records to a RecordSet using the Name+Total identity.
// The first record seen for a key is kept.
func Dedupe(records []Invoice) RecordSet {
	set := RecordSet{items: make(map[Key]Invoice, len(records))}
	for _, r := range records {
		k := r.Key()
		if _, exists := set.items[k]; exists {
			continue
		}
		set.items[k] = r
	}
	return set
}

// NewRecordSet is an alias of Dedupe for callers building a set directly.
func NewRecordSet(records ...Invoice) RecordSet {
	return Dedupe(records)
}

// Len returns the number of distinct invoices.
func (s RecordSet) Len() int {
	return len(s.items)
}

// Contains reports whether an invoice with the same identity is present.
func (s RecordSet) Contains(inv Invoice) bool {
	_, ok := s.items[inv.Key()]
	return ok
}

// Invoices returns the members ordered by name and total. The order exists
// only to keep displays stable; the set itself has none.
func (s RecordSet) Invoices() []Invoice {
	out := make([]Invoice, 0, len(s.items))
	for _, inv := range s.items {
		out = append(out, inv)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Name != out[b].Name {
			return out[a].Name < out[b].Name
		}
		return out[a].Total.LessThan(out[b].Total)
	})
	return out
}
