// File: cmd/droidpilot/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/droidpilot/cmd"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
	execute = cmd.Execute
}

func TestRun_ExitCodes(t *testing.T) {
	t.Cleanup(resetMocks)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"failure", errors.New("boom"), 1},
		{"interrupted", fmt.Errorf("run stopped: %w", context.Canceled), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execute = func(context.Context) error { return tt.err }
			assert.Equal(t, tt.want, run(context.Background()))
		})
	}
}

func TestHandlePanic(t *testing.T) {
	t.Cleanup(resetMocks)

	var (
		exitCode    = -1
		writtenPath string
		written     []byte
	)
	osExit = func(code int) { exitCode = code }
	osWriteFile = func(name string, data []byte, _ os.FileMode) error {
		writtenPath, written = name, data
		return nil
	}

	func() {
		defer handlePanic()
		panic("sanitizer exploded")
	}()

	assert.Equal(t, 1, exitCode)
	assert.Equal(t, panicLogFile, writtenPath)
	assert.Contains(t, string(written), "panic: sanitizer exploded")
	assert.Contains(t, string(written), "goroutine")
}

func TestHandlePanic_WriteFailure(t *testing.T) {
	t.Cleanup(resetMocks)

	exitCode := -1
	osExit = func(code int) { exitCode = code }
	osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }

	func() {
		defer handlePanic()
		panic("again")
	}()
	require.Equal(t, 1, exitCode)
}

func TestHandlePanic_NoPanic(t *testing.T) {
	t.Cleanup(resetMocks)

	called := false
	osExit = func(int) { called = true }
	func() {
		defer handlePanic()
	}()
	assert.False(t, called)
}
