// File: cmd/devices_test.go
package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/droidpilot/internal/mocks"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

func TestDevicesCmd(t *testing.T) {
	dev := &scriptedDevice{replies: map[string]string{
		"devices -l": "List of devices attached\nemulator-5554          device product:sdk_gphone64 model:Pixel_7 transport_id:1\nR58M123  unauthorized\n",
	}}
	cfgPath := setupCommandTest(t, dev, new(mocks.MockLLMClient))

	out, err := executeCommand(t, "", "devices", "--config", cfgPath)
	require.NoError(t, err)

	assert.Contains(t, out, "emulator-5554\tdevice\tmodel:Pixel_7\tproduct:sdk_gphone64\ttransport_id:1")
	assert.Contains(t, out, "R58M123\tunauthorized\n")
}

func TestDevicesCmd_NoneAttached(t *testing.T) {
	cfgPath := setupCommandTest(t, &scriptedDevice{}, new(mocks.MockLLMClient))

	out, err := executeCommand(t, "", "devices", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No devices attached.")
}

func TestDumpCmd(t *testing.T) {
	t.Run("prints the canonical description", func(t *testing.T) {
		dev := &scriptedDevice{dump: []byte(settingsDump)}
		cfgPath := setupCommandTest(t, dev, new(mocks.MockLLMClient))

		out, err := executeCommand(t, "", "dump", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, `"text": "Settings"`)
		assert.Equal(t, "shell uiautomator dump /sdcard/window_dump.xml", dev.calls[0])
	})

	t.Run("capture failure prints the marker and fails", func(t *testing.T) {
		cfgPath := setupCommandTest(t, &scriptedDevice{}, new(mocks.MockLLMClient))

		out, err := executeCommand(t, "", "dump", "--config", cfgPath)
		require.Error(t, err)
		assert.Contains(t, out, screen.CaptureErrorMarker)
		assert.ErrorIs(t, err, screen.ErrDumpMissing)
	})
}

func TestLogsCmd(t *testing.T) {
	cfgPath := setupCommandTest(t, &scriptedDevice{}, new(mocks.MockLLMClient))
	logPath := filepath.Join(t.TempDir(), "droidpilot.log")
	require.NoError(t, os.WriteFile(logPath, []byte("one\ntwo\nthree\nfour\n"), 0o644))
	t.Setenv("DROIDPILOT_LOGGER_LOG_FILE", logPath)

	t.Run("last lines", func(t *testing.T) {
		out, err := executeCommand(t, "", "logs", "-n", "2", "--config", cfgPath)
		require.NoError(t, err)
		assert.Equal(t, "three\nfour\n", out)
	})

	t.Run("whole file", func(t *testing.T) {
		out, err := executeCommand(t, "", "logs", "-n", "0", "--config", cfgPath)
		require.NoError(t, err)
		assert.Equal(t, 4, strings.Count(out, "\n"))
	})
}

func TestLogsCmd_FileLoggingDisabled(t *testing.T) {
	cfgPath := setupCommandTest(t, &scriptedDevice{}, new(mocks.MockLLMClient))

	_, err := executeCommand(t, "", "logs", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file logging is disabled")
}
