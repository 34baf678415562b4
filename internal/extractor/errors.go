package extractor

import "fmt"

// ExtractionError reports input that no profile could be produced from.
// Malformed but non-empty text never causes it; extraction degrades to an
// empty-field profile instead. Only unusable input (no text at all) does.
type ExtractionError struct {
	// SourceID identifies the offending input: a CV source id or a job title.
	SourceID string
	Reason   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %q: %s", e.SourceID, e.Reason)
}
