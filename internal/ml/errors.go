// Package ml trains and serves the probability-of-winning model.
package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData indicates too few labelled rows to train
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNoLabelVariance indicates every labelled row has the same outcome
	ErrNoLabelVariance = errors.New("label has no variance")

	// ErrArtifactNotFound indicates no artifact has been published under a name
	ErrArtifactNotFound = errors.New("model artifact not found")

	// ErrNotFitted indicates a model was used before Fit
	ErrNotFitted = errors.New("model is not fitted")

	// ErrFeatureMismatch indicates a feature vector of the wrong width
	ErrFeatureMismatch = errors.New("feature width mismatch")
)

// RefusalError reports a training run that declined to fit on its inputs.
// Nothing is written when a refusal is returned.
type RefusalError struct {
	Reason error
	Rows   int
	Detail string
}

func (e *RefusalError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("training refused: %v (%d rows, %s)", e.Reason, e.Rows, e.Detail)
	}
	return fmt.Sprintf("training refused: %v (%d rows)", e.Reason, e.Rows)
}

// Unwrap returns the refusal reason
func (e *RefusalError) Unwrap() error {
	return e.Reason
}

// IsRefusal reports whether err is a training refusal
func IsRefusal(err error) bool {
	var refusal *RefusalError
	return errors.As(err, &refusal)
}
