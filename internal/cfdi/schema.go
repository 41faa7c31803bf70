// Package cfdi extracts invoice records from CFDI v4 XML documents.
package cfdi

// Namespace is the CFDI v4 namespace bound to the "cfdi" prefix in every path.
const Namespace = "http://www.sat.gob.mx/cfd/4"

// Cardinality says how many matches a field keeps.
type Cardinality int

const (
	// One keeps the first match in document order.
	One Cardinality = iota
	// Many keeps every match in document order.
	Many
)

// Field names.
const (
	FieldTotal      = "total"
	FieldIssuerRFC  = "issuer_rfc"
	FieldIssuerName = "issuer_name"
	FieldIssueDate  = "issue_date"
	FieldConcepts   = "concepts"
	FieldUsageCode  = "usage_code"
	FieldTax        = "tax"
)

// Field describes one value pulled out of a document.
type Field struct {
	Name        string
	Path        string
	Cardinality Cardinality
	Default     string
}

// Schema is an ordered list of fields.
type Schema []Field

// DefaultSchema is the field set read from every CFDI v4 document.
func DefaultSchema() Schema {
	return Schema{
		{Name: FieldTotal, Path: "//cfdi:Comprobante/@Total", Cardinality: One, Default: "0"},
		{Name: FieldIssuerRFC, Path: "//cfdi:Comprobante/cfdi:Emisor/@Rfc", Cardinality: One},
		{Name: FieldIssuerName, Path: "//cfdi:Comprobante/cfdi:Emisor/@Nombre", Cardinality: One},
		{Name: FieldIssueDate, Path: "//cfdi:Comprobante/@Fecha", Cardinality: One},
		{Name: FieldConcepts, Path: "//cfdi:Comprobante/cfdi:Conceptos/cfdi:Concepto/@Descripcion", Cardinality: Many},
		{Name: FieldUsageCode, Path: "//cfdi:Comprobante/cfdi:Receptor/@UsoCFDI", Cardinality: One},
		// Concept-level transfers precede the document-level summary, so the
		// first match may be a line item's tax.
		{Name: FieldTax, Path: "//cfdi:Impuestos/cfdi:Traslados/cfdi:Traslado/@Importe", Cardinality: One, Default: "0"},
	}
}
