// Package device talks to an Android device through the adb command line tool.
package device

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
)

// Transport sends one command to the device and returns its trimmed standard output.
// Implementations never fail the caller; device side problems surface as
// warnings in the log and whatever output was produced is returned.
type Transport interface {
	Execute(ctx context.Context, args ...string) string
}

// Runner spawns a process and collects its output streams.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

// execRunner is the production Runner.
func execRunner(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// ADB is the adb backed Transport.
type ADB struct {
	path   string
	serial string
	cfg    config.DeviceConfig
	run    Runner
	logger *zap.Logger
}

var _ Transport = (*ADB)(nil)

// NewADB creates a Transport that shells out to the configured adb binary.
func NewADB(cfg config.DeviceConfig, logger *zap.Logger) *ADB {
	return NewADBWithRunner(cfg, logger, execRunner)
}

// NewADBWithRunner is NewADB with an injectable process runner.
func NewADBWithRunner(cfg config.DeviceConfig, logger *zap.Logger, run Runner) *ADB {
	path := cfg.ADBPath
	if path == "" {
		path = "adb"
	}
	return &ADB{
		path:   path,
		serial: cfg.Serial,
		cfg:    cfg,
		run:    run,
		logger: logger.Named("adb"),
	}
}

// Execute runs `adb [-s serial] args...` and blocks until it exits.
func (a *ADB) Execute(ctx context.Context, args ...string) string {
	if a.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.CommandTimeout)
		defer cancel()
	}

	full := make([]string, 0, len(args)+2)
	if a.serial != "" {
		full = append(full, "-s", a.serial)
	}
	full = append(full, args...)

	stdout, stderr, err := a.run(ctx, a.path, full...)
	if isErrorDiagnostic(stderr) {
		a.logger.Warn("ADB Error",
			zap.Strings("args", args),
			zap.String("stderr", strings.TrimSpace(stderr)))
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) || ctx.Err() != nil:
		// A non-zero exit is common for adb (e.g. uiautomator on a locked screen);
		// the caller still receives stdout.
		a.logger.Debug("adb exited with error", zap.Strings("args", args), zap.Error(err))
	default:
		a.logger.Warn("Failed to run adb",
			zap.String("path", a.path),
			zap.Strings("args", args),
			zap.Error(err))
	}
	return strings.TrimSpace(stdout)
}

// isErrorDiagnostic reports whether the diagnostic stream looks like an error.
func isErrorDiagnostic(stderr string) bool {
	return stderr != "" && strings.Contains(strings.ToLower(stderr), "error")
}
