// internal/agent/loop.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// Observer produces the screen description for one cycle.
type Observer interface {
	Capture(ctx context.Context) screen.Description
}

// Decider turns a goal and a screen into the next Action.
type Decider interface {
	Decide(ctx context.Context, goal string, desc screen.Description) (Action, error)
}

// Actor carries out an Action on the device.
type Actor interface {
	Execute(ctx context.Context, action Action) (Signal, error)
}

// ErrEmptyGoal is returned by Run for a blank goal.
var ErrEmptyGoal = errors.New("goal must not be empty")

// Loop runs observe, decide and act cycles until the goal is reached or the
// step budget runs out.
type Loop struct {
	observer Observer
	decider  Decider
	actor    Actor

	maxSteps  int
	stepDelay time.Duration
	tapPolicy config.TapPolicy

	sleep  Sleeper
	newID  func() string
	logger *zap.Logger
}

// LoopOption customizes a Loop.
type LoopOption func(*Loop)

// WithSleeper replaces the inter-cycle pause.
func WithSleeper(s Sleeper) LoopOption {
	return func(l *Loop) { l.sleep = s }
}

// WithRunID fixes the run id generator.
func WithRunID(f func() string) LoopOption {
	return func(l *Loop) { l.newID = f }
}

// NewLoop wires the three cycle stages together.
func NewLoop(obs Observer, dec Decider, act Actor, cfg config.AgentConfig, logger *zap.Logger, opts ...LoopOption) *Loop {
	l := &Loop{
		observer:  obs,
		decider:   dec,
		actor:     act,
		maxSteps:  cfg.MaxSteps,
		stepDelay: cfg.StepDelay,
		tapPolicy: cfg.TapPolicy,
		sleep:     SleepContext,
		newID:     uuid.NewString,
		logger:    logger.Named("loop"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drives the device toward goal. Failures inside a cycle are recorded
// and never end the run; only Done, the step budget or ctx cancellation do.
func (l *Loop) Run(ctx context.Context, goal string) (*RunResult, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, ErrEmptyGoal
	}

	result := &RunResult{
		RunID:     l.newID(),
		Goal:      goal,
		Reason:    BudgetExhausted,
		StartTime: time.Now(),
		Steps:     make([]StepRecord, 0, max(l.maxSteps, 0)),
	}
	logger := l.logger.With(zap.String("run_id", result.RunID))
	logger.Info("Android Use Agent Started", zap.String("goal", goal), zap.Int("max_steps", l.maxSteps))

	defer func() {
		result.StepsRun = len(result.Steps)
		result.Duration = time.Since(result.StartTime)
		logger.Info("Run finished",
			zap.String("reason", string(result.Reason)),
			zap.Int("steps", result.StepsRun),
			zap.Int("failed_steps", result.FailedSteps),
			zap.Duration("duration", result.Duration))
	}()

	for step := 0; step < l.maxSteps; step++ {
		if ctx.Err() != nil {
			result.Reason = Cancelled
			return result, nil
		}

		logger.Info(fmt.Sprintf("--- Step %d ---", step+1))
		start := time.Now()
		outcome := l.runStep(ctx, logger, goal)
		result.Steps = append(result.Steps, newStepRecord(step+1, outcome, time.Since(start)))
		if outcome.Failed() {
			result.FailedSteps++
		}

		if outcome.Signal == Terminate {
			result.Reason = GoalAchieved
			result.FinalMessage = outcome.Action.Reason()
			return result, nil
		}
		if ctx.Err() != nil {
			result.Reason = Cancelled
			return result, nil
		}

		if err := l.sleep(ctx, l.stepDelay); err != nil {
			result.Reason = Cancelled
			return result, nil
		}
	}

	logger.Warn("Step budget exhausted before the goal was reached", zap.Int("max_steps", l.maxSteps))
	return result, nil
}

// runStep performs one cycle and reports what happened; it never panics the
// loop on a bad decision.
func (l *Loop) runStep(ctx context.Context, logger *zap.Logger, goal string) StepOutcome {
	logger.Info("Scanning Screen...")
	desc := l.observer.Capture(ctx)

	logger.Info("Thinking...")
	action, err := l.decider.Decide(ctx, goal, desc)
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		var de *DecisionError
		if errors.As(err, &de) && de.Raw != "" {
			fields = append(fields, zap.String("raw_reply", de.Raw))
		}
		logger.Error("Error during decision", fields...)
		return StepOutcome{Signal: Continue, Err: err}
	}
	logger.Info("Decision", zap.String("action", string(action.Kind())), zap.String("reason", action.Reason()))

	if err := l.checkTap(action, desc); err != nil {
		logger.Warn("Tap rejected", zap.Error(err))
		return StepOutcome{Action: action, Signal: Continue, Err: err}
	}

	signal, err := l.actor.Execute(ctx, action)
	if err != nil {
		logger.Error("Error during action", zap.String("action", string(action.Kind())), zap.Error(err))
	}
	return StepOutcome{Action: action, Signal: signal, Err: err}
}

// checkTap applies the tap policy. Without any observed bounds there is
// nothing to check against and the tap goes through.
func (l *Loop) checkTap(action Action, desc screen.Description) error {
	tap, ok := action.(TapAction)
	if !ok || l.tapPolicy != config.TapPolicyRejectOffscreen {
		return nil
	}
	viewport, ok := desc.Viewport()
	if !ok || viewport.Contains(tap.X, tap.Y) {
		return nil
	}
	return fmt.Errorf("%w: (%d, %d) not within [%d,%d][%d,%d]", ErrTapOffscreen,
		tap.X, tap.Y, viewport.Left, viewport.Top, viewport.Right, viewport.Bottom)
}

func newStepRecord(step int, o StepOutcome, d time.Duration) StepRecord {
	rec := StepRecord{Step: step, Duration: d}
	if o.Action != nil {
		rec.Action = o.Action.Kind()
		rec.Reason = o.Action.Reason()
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	return rec
}
