// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/llmclient"
)

const testConfigYAML = `
logger:
  level: error
  log_file: ""
agent:
  step_delay: 0s
  wait_duration: 0s
`

const settingsDump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="Settings" resource-id="" class="android.widget.TextView" content-desc="" clickable="true" enabled="true" bounds="[440,840][560,960]" />
</hierarchy>`

// scriptedDevice answers adb commands from a table and emulates pull.
type scriptedDevice struct {
	mu      sync.Mutex
	dump    []byte
	replies map[string]string
	calls   []string
}

func (d *scriptedDevice) Execute(_ context.Context, args ...string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	joined := strings.Join(args, " ")
	d.calls = append(d.calls, joined)
	if len(args) == 3 && args[0] == "pull" && d.dump != nil {
		_ = os.WriteFile(args[2], d.dump, 0o644)
	}
	return d.replies[joined]
}

// setupCommandTest isolates a test in its own working directory with a
// quiet config file and swaps the device and model constructors.
func setupCommandTest(t *testing.T, dev device.Transport, model llmclient.Client) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	cfgPath := filepath.Join(dir, "test-config.yaml")
	if err := os.WriteFile(cfgPath, []byte(testConfigYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	origTransport, origClient := newTransport, newLLMClient
	t.Cleanup(func() { newTransport, newLLMClient = origTransport, origClient })

	newTransport = func(config.DeviceConfig, *zap.Logger) device.Transport { return dev }
	newLLMClient = func(context.Context, config.LLMModelConfig, *zap.Logger) (llmclient.Client, error) {
		return model, nil
	}
	return cfgPath
}

// executeCommand runs a fresh command tree and returns everything it printed.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}
