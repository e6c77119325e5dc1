package fit

import "fmt"

// DegreesOfFreedomError means the profile has too few samples for the
// requested model's parameter count. During comparison it is recovered
// locally by excluding the model; for a single-model request it is fatal.
type DegreesOfFreedomError struct {
	ModelID string
	Samples int
	Params  int
}

func (e *DegreesOfFreedomError) Error() string {
	return fmt.Sprintf("model %s: %d samples against %d parameters leaves no degrees of freedom",
		e.ModelID, e.Samples, e.Params)
}

// CancelledError reports a caller-initiated abort, kept distinct from
// computation failures so callers can retry without re-uploading the image.
type CancelledError struct {
	ModelID string
	Err     error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("model %s: fit cancelled: %v", e.ModelID, e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }
