package cfdi

import "fmt"

// ExtractionError reports a document that could not be turned into a record.
// The label is the caller-supplied name of the document.
type ExtractionError struct {
	Label string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q: %v", e.Label, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
