package scene

import (
	"errors"
	"fmt"

	"github.com/NERVsystems/osmterrain/pkg/core"
)

// Outcome classifies how a problem affected the build
type Outcome string

const (
	// OutcomeSkipped means one feature was dropped and the build went on
	OutcomeSkipped Outcome = "skipped"
	// OutcomeDegraded means the build went on with reduced input, such as
	// a flat field in place of missing elevation
	OutcomeDegraded Outcome = "degraded"
	// OutcomeFatal means the build was rejected before it started
	OutcomeFatal Outcome = "fatal"
)

// BuildError is a classified problem met during a build
type BuildError struct {
	Code     string  `json:"code"`
	Message  string  `json:"message"`
	Outcome  Outcome `json:"outcome"`
	SourceID string  `json:"source_id,omitempty"`
	Guidance string  `json:"guidance,omitempty"`
	cause    error
}

// Error implements the error interface
func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s (%s): %s", e.Code, e.Outcome, e.Message)
	if e.SourceID != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.SourceID)
	}
	if e.Guidance != "" {
		msg += ". " + e.Guidance
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *BuildError) Unwrap() error { return e.cause }

// WithGuidance adds guidance information to the error
func (e *BuildError) WithGuidance(guidance string) *BuildError {
	e.Guidance = guidance
	return e
}

// Fatal wraps err as a build-rejecting error, keeping the code of a
// coded error
func Fatal(code core.ErrorCode, err error) *BuildError {
	e := &BuildError{Code: string(code), Message: err.Error(), Outcome: OutcomeFatal, cause: err}
	var c *core.Error
	if errors.As(err, &c) {
		e.Code, e.Message, e.Guidance = c.Code, c.Message, c.Guidance
	}
	return e
}

// Degraded records a problem the build continued past
func Degraded(code core.ErrorCode, err error) *BuildError {
	return &BuildError{Code: string(code), Message: err.Error(), Outcome: OutcomeDegraded, cause: err}
}

// Skipped records a dropped feature
func Skipped(sourceID, reason string) *BuildError {
	return &BuildError{Code: "FEATURE_SKIPPED", Message: reason, Outcome: OutcomeSkipped, SourceID: sourceID}
}
