package profile

import "fmt"

// ExtractionError reports bad or ambiguous image geometry. It is fatal for
// the request: no partial profile is produced.
type ExtractionError struct {
	Stage  string // "peak", "radius", "normalize" or "disk"
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("profile extraction: %s: %s", e.Stage, e.Reason)
}
