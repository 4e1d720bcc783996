package pipeline

import (
	"errors"
	"fmt"

	"nexiro/internal/domain"
)

// State is a step of a single enhancement request.
type State string

const (
	StateIdle           State = "IDLE"
	StateAnalyzing      State = "ANALYZING"
	StateStyleResolving State = "STYLE_RESOLVING"
	StateCreditCheck    State = "CREDIT_CHECK"
	StateGenerating     State = "GENERATING"
	StateSuccess        State = "SUCCESS"
	StateError          State = "ERROR"
)

func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError
}

// Event is emitted on every state transition.
type Event struct {
	State   State                `json:"state"`
	Account domain.CreditAccount `json:"account"`
	Charged bool                 `json:"charged"`
	Message string               `json:"message,omitempty"`
}

// Observer receives transitions in order. It runs on the request goroutine.
type Observer func(Event)

// StageError is a hard failure at one stage. Charged reports whether the
// debit had already succeeded; charged failures are not refunded.
type StageError struct {
	Stage   State
	Charged bool
	Err     error
}

func (e *StageError) Error() string {
	if e.Charged {
		return fmt.Sprintf("generation failed after credits were charged: %v", e.Err)
	}
	switch e.Stage {
	case StateIdle:
		return fmt.Sprintf("invalid request: %v", e.Err)
	case StateCreditCheck:
		return fmt.Sprintf("could not charge credits, nothing was generated: %v", e.Err)
	default:
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result is the terminal outcome of Run.
type Result struct {
	State           State
	Image           domain.Image
	Account         domain.CreditAccount
	Cost            int
	Charged         bool
	UpgradeRequired bool
	Instruction     string
	Err             error
}

// Message is the single user-facing string for the outcome.
func (r Result) Message() string {
	switch {
	case r.State == StateSuccess:
		return ""
	case r.UpgradeRequired:
		return fmt.Sprintf("This generation costs %d credits and you have %d. Upgrade your plan to continue.", r.Cost, r.Account.Credits)
	case r.Err != nil:
		return r.Err.Error()
	default:
		return "generation failed"
	}
}

// IsStageError reports whether err carries a StageError and returns it.
func IsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
