package cfdi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"facturas/internal/core"
)

var (
	ErrNoRootElement = errors.New("document has no root element")
	ErrMultipleRoots = errors.New("document has more than one root element")
	ErrNotNumeric    = errors.New("value is not numeric")
)

// Document is one raw upload.
type Document struct {
	Label string
	Data  []byte
}

// BatchResult keeps records and failures in input order.
type BatchResult struct {
	Records  []core.Invoice
	Failures []*ExtractionError
}

type compiledField struct {
	Field
	expr *xpath.Expr
	err  error
}

// Extractor evaluates a Schema against documents. It holds no per-document
// state and is safe for concurrent use.
type Extractor struct {
	fields  []compiledField
	workers int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers bounds the number of documents extracted in parallel by
// ExtractBatch. Values below one mean sequential extraction.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithSchema replaces the default field schema.
func WithSchema(s Schema) Option {
	return func(e *Extractor) {
		e.fields = compile(s)
	}
}

// NewExtractor builds an extractor for DefaultSchema. Path compile errors are
// kept and reported for every document, not at construction.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{fields: compile(DefaultSchema()), workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func compile(s Schema) []compiledField {
	ns := map[string]string{"cfdi": Namespace}
	out := make([]compiledField, 0, len(s))
	for _, f := range s {
		expr, err := xpath.CompileWithNS(f.Path, ns)
		out = append(out, compiledField{Field: f, expr: expr, err: err})
	}
	return out
}

// Extract parses one document into an invoice. Missing fields fall back to
// their defaults. Every error returned is an *ExtractionError.
func (e *Extractor) Extract(raw []byte, label string) (core.Invoice, error) {
	fail := func(err error) (core.Invoice, error) {
		return core.Invoice{}, &ExtractionError{Label: label, Cause: err}
	}

	doc, err := xmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		return fail(fmt.Errorf("parse xml: %w", err))
	}
	if roots := rootElements(doc); roots == 0 {
		return fail(ErrNoRootElement)
	} else if roots > 1 {
		return fail(ErrMultipleRoots)
	}

	values := make(map[string][]string, len(e.fields))
	nav := xmlquery.CreateXPathNavigator(doc)
	for _, f := range e.fields {
		if f.err != nil {
			return fail(fmt.Errorf("compile %s path %q: %w", f.Name, f.Path, f.err))
		}
		matches := evaluate(f.expr, nav.Copy())
		switch {
		case f.Cardinality == Many:
			values[f.Name] = matches
		case len(matches) > 0:
			values[f.Name] = matches[:1]
		case f.Default != "":
			values[f.Name] = []string{f.Default}
		}
	}

	inv := core.Invoice{
		Name:       label,
		IssuerRFC:  first(values[FieldIssuerRFC]),
		IssuerName: first(values[FieldIssuerName]),
		IssueDate:  first(values[FieldIssueDate]),
		Concepts:   values[FieldConcepts],
		UsageCode:  first(values[FieldUsageCode]),
	}
	if inv.Concepts == nil {
		inv.Concepts = []string{}
	}
	if inv.Total, err = parseAmount(FieldTotal, values[FieldTotal]); err != nil {
		return fail(err)
	}
	if inv.Tax, err = parseAmount(FieldTax, values[FieldTax]); err != nil {
		return fail(err)
	}
	return inv, nil
}

// ExtractBatch extracts every document. A failing document is reported in
// Failures and never aborts the others. The context only stops documents
// that have not started yet.
func (e *Extractor) ExtractBatch(ctx context.Context, docs []Document) BatchResult {
	type outcome struct {
		inv core.Invoice
		err *ExtractionError
	}
	outcomes := make([]outcome, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, d := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i].err = &ExtractionError{Label: d.Label, Cause: err}
				return nil
			}
			inv, err := e.Extract(d.Data, d.Label)
			if err != nil {
				var xe *ExtractionError
				if !errors.As(err, &xe) {
					xe = &ExtractionError{Label: d.Label, Cause: err}
				}
				outcomes[i].err = xe
				return nil
			}
			outcomes[i].inv = inv
			return nil
		})
	}
	_ = g.Wait()

	var res BatchResult
	for _, o := range outcomes {
		if o.err != nil {
			res.Failures = append(res.Failures, o.err)
			continue
		}
		res.Records = append(res.Records, o.inv)
	}
	return res
}

// rootElements counts top-level elements. xmlquery accepts trailing sibling
// roots, which well-formed XML forbids.
func rootElements(doc *xmlquery.Node) int {
	n := 0
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			n++
		}
	}
	return n
}

func evaluate(expr *xpath.Expr, nav xpath.NodeNavigator) []string {
	var out []string
	switch v := expr.Evaluate(nav).(type) {
	case *xpath.NodeIterator:
		for v.MoveNext() {
			out = append(out, v.Current().Value())
		}
	case string:
		out = append(out, v)
	}
	return out
}

func first(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// parseAmount reads the first value of an amount field. Only an absent
// field is zero; a present but empty value is not numeric.
func parseAmount(field string, vs []string) (decimal.Decimal, error) {
	if len(vs) == 0 {
		return decimal.Zero, nil
	}
	raw := strings.TrimSpace(vs[0])
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q: %w", field, raw, ErrNotNumeric)
	}
	return d, nil
}
