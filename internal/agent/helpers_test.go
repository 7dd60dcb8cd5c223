package agent_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

const settingsDump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="Settings" resource-id="" class="android.widget.TextView" content-desc="" clickable="true" enabled="true" bounds="[440,840][560,960]" />
</hierarchy>`

// fakeDevice behaves like adb for the commands the agent issues. A pull
// writes dump to the local path unless dump is nil.
type fakeDevice struct {
	mu    sync.Mutex
	dump  []byte
	calls [][]string
}

func (f *fakeDevice) Execute(_ context.Context, args ...string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, slices.Clone(args))
	if len(args) == 3 && args[0] == "pull" && f.dump != nil {
		_ = os.WriteFile(args[2], f.dump, 0o644)
	}
	return ""
}

// inputCalls returns every "shell input ..." command.
func (f *fakeDevice) inputCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.calls {
		if len(c) >= 2 && c[0] == "shell" && c[1] == "input" {
			out = append(out, c)
		}
	}
	return out
}

// sleepRecorder is a Sleeper that never blocks.
type sleepRecorder struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.durations = append(s.durations, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.durations)
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func newTestObserver(t *testing.T, dev *fakeDevice) *screen.Observer {
	t.Helper()
	obs, err := screen.NewObserver(dev, config.DeviceConfig{
		RemoteDumpPath: "/sdcard/window_dump.xml",
		LocalDumpPath:  filepath.Join(t.TempDir(), "window_dump.xml"),
	}, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	return obs
}

func testAgentConfig(maxSteps int) config.AgentConfig {
	return config.AgentConfig{
		MaxSteps:     maxSteps,
		StepDelay:    2 * time.Second,
		WaitDuration: 2 * time.Second,
		TapPolicy:    config.TapPolicyPassthrough,
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
