package council

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrNoCandidates       = errors.New("council: no candidates available")
	ErrFirstSpeakerDown   = errors.New("council: first speaker unavailable")
	ErrStubEscaped        = errors.New("council: stub answer escaped filtering")
	ErrBudgetHardCap      = errors.New("council: budget hard cap exceeded")
	ErrBackendUnavailable = errors.New("council: backend unavailable")
	ErrRateLimited        = errors.New("council: rate limited by backend")
	ErrAuthFailed         = errors.New("council: authentication failed")
	ErrInvalidRequest     = errors.New("council: invalid request")
	ErrModelNotFound      = errors.New("council: model not found")
)

// TurnError wraps an error with turn context.
type TurnError struct {
	Err       error
	SessionID string
	Model     ModelID
	Phase     string
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("council: session=%s model=%s phase=%s: %v",
		e.SessionID, e.Model, e.Phase, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error ends the turn instead of degrading
// the candidate that produced it.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFirstSpeakerDown) || errors.Is(err, ErrBudgetHardCap)
}
