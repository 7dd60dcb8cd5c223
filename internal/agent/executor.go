// internal/agent/executor.go
package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/device"
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Executor maps an Action onto device commands.
type Executor struct {
	transport    device.Transport
	waitDuration time.Duration
	sleep        Sleeper
	logger       *zap.Logger
}

// NewExecutor creates an Executor. A nil sleep uses SleepContext.
func NewExecutor(t device.Transport, waitDuration time.Duration, sleep Sleeper, logger *zap.Logger) *Executor {
	if sleep == nil {
		sleep = SleepContext
	}
	return &Executor{
		transport:    t,
		waitDuration: waitDuration,
		sleep:        sleep,
		logger:       logger.Named("executor"),
	}
}

// Execute performs the action. Only DoneAction yields Terminate. The error is
// non-nil only when a Wait was interrupted by ctx.
func (e *Executor) Execute(ctx context.Context, action Action) (Signal, error) {
	switch a := action.(type) {
	case TapAction:
		e.logger.Info("Tapping", zap.Int("x", a.X), zap.Int("y", a.Y))
		device.Tap(ctx, e.transport, a.X, a.Y)
	case TypeAction:
		e.logger.Info("Typing", zap.String("text", a.Text))
		device.InputText(ctx, e.transport, a.Text)
	case HomeAction:
		e.logger.Info("Going Home")
		device.KeyEvent(ctx, e.transport, device.KeycodeHome)
	case BackAction:
		e.logger.Info("Going Back")
		device.KeyEvent(ctx, e.transport, device.KeycodeBack)
	case WaitAction:
		e.logger.Info("Waiting...", zap.Duration("duration", e.waitDuration))
		if err := e.sleep(ctx, e.waitDuration); err != nil {
			return Continue, err
		}
	case DoneAction:
		e.logger.Info("Goal Achieved.")
		return Terminate, nil
	case UnknownAction:
		e.logger.Debug("Ignoring unsupported action", zap.String("tag", a.Tag))
	default:
		e.logger.Debug("Ignoring unsupported action", zap.Any("action", action))
	}
	return Continue, nil
}
