package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UnknownPeriodLabel is shown for invoices whose issue date could not be parsed.
const UnknownPeriodLabel = "sin fecha"

// issueDateLayouts are tried in order. CFDI emits "2006-01-02T15:04:05"
// without a zone; the rest cover hand-edited and older documents.
var issueDateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

type (
	// NullInt is an int that may be unknown. Year and month cells use it so
	// unparsable dates stay in the output as their own group.
	NullInt struct {
		Int   int
		Valid bool
	}

	// Period is the (year, month) partition key of an invoice.
	Period struct {
		Year  NullInt
		Month NullInt
	}
)

// IntOf returns a valid NullInt.
func IntOf(v int) NullInt {
	return NullInt{Int: v, Valid: true}
}

func (n NullInt) String() string {
	if !n.Valid {
		return UnknownPeriodLabel
	}
	return strconv.Itoa(n.Int)
}

// Compare orders known values ascending and puts unknown values last.
func (n NullInt) Compare(o NullInt) int {
	switch {
	case n.Valid && o.Valid:
		switch {
		case n.Int < o.Int:
			return -1
		case n.Int > o.Int:
			return 1
		}
		return 0
	case n.Valid:
		return -1
	case o.Valid:
		return 1
	}
	return 0
}

// MarshalJSON encodes unknown values as null.
func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(n.Int)), nil
}

// ParsePeriod extracts year and month from a raw issue date. Anything that
// does not parse yields an unknown period instead of an error.
func ParsePeriod(raw string) Period {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Period{}
	}
	for _, layout := range issueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Period{Year: IntOf(t.Year()), Month: IntOf(int(t.Month()))}
		}
	}
	return Period{}
}

// Known reports whether both year and month are present.
func (p Period) Known() bool {
	return p.Year.Valid && p.Month.Valid
}

// Label formats the period as "YYYY-MM".
func (p Period) Label() string {
	if !p.Known() {
		return UnknownPeriodLabel
	}
	return fmt.Sprintf("%d-%02d", p.Year.Int, p.Month.Int)
}

// Compare orders by year then month, unknown last.
func (p Period) Compare(o Period) int {
	if c := p.Year.Compare(o.Year); c != 0 {
		return c
	}
	return p.Month.Compare(o.Month)
}
