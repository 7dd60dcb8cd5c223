package agent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/mocks"
	"github.com/xkilldash9x/droidpilot/internal/observability"
)

func TestExecutor_Dispatch(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		action   agent.Action
		wantArgs []string
	}{
		{"tap", agent.TapAction{X: 500, Y: 900, Rationale: "open"}, []string{"shell", "input", "tap", "500", "900"}},
		{"tap passes offscreen coordinates through", agent.TapAction{X: -20, Y: 99999}, []string{"shell", "input", "tap", "-20", "99999"}},
		{"type", agent.TypeAction{Text: "hello"}, []string{"shell", "input", "text", "hello"}},
		{"type escapes every space", agent.TypeAction{Text: " a  b c "}, []string{"shell", "input", "text", "%sa%s%sb%sc%s"}},
		{"type leaves other characters alone", agent.TypeAction{Text: "tab\there's \"q\""}, []string{"shell", "input", "text", "tab\there's%s\"q\""}},
		{"type empty text", agent.TypeAction{}, []string{"shell", "input", "text", ""}},
		{"home", agent.HomeAction{}, []string{"shell", "input", "keyevent", "3"}},
		{"back", agent.BackAction{}, []string{"shell", "input", "keyevent", "4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(mocks.MockTransport)
			transport.On("Execute", ctx, tt.wantArgs).Return("").Once()
			sleeper := &sleepRecorder{}

			exec := agent.NewExecutor(transport, 2*time.Second, sleeper.Sleep, observability.GetLogger())
			signal, err := exec.Execute(ctx, tt.action)

			require.NoError(t, err)
			assert.Equal(t, agent.Continue, signal)
			assert.Zero(t, sleeper.count())
			transport.AssertExpectations(t)
		})
	}
}

func TestExecutor_TapArgumentsEndWithCoordinates(t *testing.T) {
	ctx := context.Background()
	for _, xy := range [][2]int{{0, 0}, {1, 2}, {1079, 2399}, {-5, 7}} {
		transport := new(mocks.MockTransport)
		transport.On("Execute", ctx, mock.Anything).Return("").Once()

		exec := agent.NewExecutor(transport, 0, nil, observability.GetLogger())
		_, err := exec.Execute(ctx, agent.TapAction{X: xy[0], Y: xy[1]})
		require.NoError(t, err)

		args := transport.Calls[0].Arguments.Get(1).([]string)
		require.GreaterOrEqual(t, len(args), 2)
		assert.Equal(t, []string{itoa(xy[0]), itoa(xy[1])}, args[len(args)-2:])
	}
}

func TestExecutor_Wait(t *testing.T) {
	transport := new(mocks.MockTransport)
	sleeper := &sleepRecorder{}
	exec := agent.NewExecutor(transport, 2*time.Second, sleeper.Sleep, observability.GetLogger())

	signal, err := exec.Execute(context.Background(), agent.WaitAction{Rationale: "loading"})

	require.NoError(t, err)
	assert.Equal(t, agent.Continue, signal)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.durations)
	transport.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestExecutor_WaitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := agent.NewExecutor(new(mocks.MockTransport), time.Hour, nil, observability.GetLogger())
	start := time.Now()
	signal, err := exec.Execute(ctx, agent.WaitAction{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, agent.Continue, signal)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecutor_Done(t *testing.T) {
	transport := new(mocks.MockTransport)
	exec := agent.NewExecutor(transport, time.Second, nil, observability.GetLogger())

	signal, err := exec.Execute(context.Background(), agent.DoneAction{Rationale: "goal achieved"})

	require.NoError(t, err)
	assert.Equal(t, agent.Terminate, signal)
	transport.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestExecutor_UnknownIsNoop(t *testing.T) {
	transport := new(mocks.MockTransport)
	sleeper := &sleepRecorder{}
	exec := agent.NewExecutor(transport, time.Second, sleeper.Sleep, observability.GetLogger())

	signal, err := exec.Execute(context.Background(), agent.UnknownAction{Tag: "swipe"})

	require.NoError(t, err)
	assert.Equal(t, agent.Continue, signal)
	assert.Zero(t, sleeper.count())
	transport.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, agent.SleepContext(context.Background(), time.Millisecond))
	require.NoError(t, agent.SleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, agent.SleepContext(ctx, time.Hour), context.Canceled)
}
