// internal/agent/models.go
package agent

import (
	"fmt"
	"time"
)

// ActionKind is the tag carried by every Action. It is the value of the
// "action" field in the oracle's reply.
type ActionKind string

const (
	KindTap     ActionKind = "tap"  // Touch a screen coordinate.
	KindType    ActionKind = "type" // Send literal text to the focused field.
	KindHome    ActionKind = "home" // Press the Home key.
	KindBack    ActionKind = "back" // Press the Back key.
	KindWait    ActionKind = "wait" // Pause without touching the device.
	KindDone    ActionKind = "done" // The goal has been reached.
	KindUnknown ActionKind = "unknown"
)

// Action is one decision of the oracle. The set of implementations is closed:
// TapAction, TypeAction, HomeAction, BackAction, WaitAction, DoneAction, and
// UnknownAction, which only the reply parser produces.
type Action interface {
	Kind() ActionKind
	Reason() string
	isAction()
}

// TapAction touches the screen at (X, Y).
type TapAction struct {
	X, Y      int
	Rationale string
}

// TypeAction sends Text to whatever field has focus.
type TypeAction struct {
	Text      string
	Rationale string
}

// HomeAction presses the Home hardware key.
type HomeAction struct{ Rationale string }

// BackAction presses the Back hardware key.
type BackAction struct{ Rationale string }

// WaitAction pauses the cycle.
type WaitAction struct{ Rationale string }

// DoneAction ends the run.
type DoneAction struct{ Rationale string }

// UnknownAction is a well-formed reply whose tag is not supported.
type UnknownAction struct {
	Tag       string
	Rationale string
}

func (TapAction) Kind() ActionKind     { return KindTap }
func (TypeAction) Kind() ActionKind    { return KindType }
func (HomeAction) Kind() ActionKind    { return KindHome }
func (BackAction) Kind() ActionKind    { return KindBack }
func (WaitAction) Kind() ActionKind    { return KindWait }
func (DoneAction) Kind() ActionKind    { return KindDone }
func (UnknownAction) Kind() ActionKind { return KindUnknown }

func (a TapAction) Reason() string     { return a.Rationale }
func (a TypeAction) Reason() string    { return a.Rationale }
func (a HomeAction) Reason() string    { return a.Rationale }
func (a BackAction) Reason() string    { return a.Rationale }
func (a WaitAction) Reason() string    { return a.Rationale }
func (a DoneAction) Reason() string    { return a.Rationale }
func (a UnknownAction) Reason() string { return a.Rationale }

func (TapAction) isAction()     {}
func (TypeAction) isAction()    {}
func (HomeAction) isAction()    {}
func (BackAction) isAction()    {}
func (WaitAction) isAction()    {}
func (DoneAction) isAction()    {}
func (UnknownAction) isAction() {}

func (a TapAction) String() string { return fmt.Sprintf("tap (%d, %d)", a.X, a.Y) }
func (a TypeAction) String() string {
	return fmt.Sprintf("type %q", a.Text)
}
func (a UnknownAction) String() string { return fmt.Sprintf("unknown %q", a.Tag) }

// Signal is the Executor's only feedback to the loop.
type Signal int

const (
	Continue Signal = iota
	Terminate
)

func (s Signal) String() string {
	if s == Terminate {
		return "terminate"
	}
	return "continue"
}

// TerminationReason explains why a run stopped.
type TerminationReason string

const (
	GoalAchieved    TerminationReason = "GOAL_ACHIEVED"
	BudgetExhausted TerminationReason = "BUDGET_EXHAUSTED"
	Cancelled       TerminationReason = "CANCELLED"
)

// StepOutcome is what one cycle reports back to the loop.
type StepOutcome struct {
	Action Action // nil when the decision failed.
	Signal Signal
	Err    error
}

// Failed reports whether the cycle could not decide or execute.
func (o StepOutcome) Failed() bool { return o.Err != nil }

// StepRecord is the observable trace of one completed cycle.
type StepRecord struct {
	Step     int           `json:"step"`
	Action   ActionKind    `json:"action,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunResult is the terminal record of a run.
type RunResult struct {
	RunID        string            `json:"run_id"`
	Goal         string            `json:"goal"`
	Reason       TerminationReason `json:"reason"`
	StepsRun     int               `json:"steps_run"`
	FailedSteps  int               `json:"failed_steps"`
	FinalMessage string            `json:"final_message,omitempty"`
	Steps        []StepRecord      `json:"steps"`
	StartTime    time.Time         `json:"start_time"`
	Duration     time.Duration     `json:"duration"`
}
