// Package screen captures the device UI and turns it into a description the
// decision oracle can read.
package screen

import (
	"context"
	"errors"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/device"
	"github.com/xkilldash9x/droidpilot/internal/sanitizer"
)

// CaptureErrorMarker is the in-band description used when no dump could be read.
const CaptureErrorMarker = "Error: Could not capture screen."

// canonicalJSON sorts map keys, so the same screen always serializes the same way.
var canonicalJSON = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Description is one snapshot of the screen's interactive elements.
// A zero Err means the capture succeeded; otherwise Elements is empty and the
// description renders as CaptureErrorMarker.
type Description struct {
	Elements []sanitizer.Element
	Err      error
}

// Failed reports whether this description is the capture error marker.
func (d Description) Failed() bool { return d.Err != nil }

// String renders the description as indented canonical JSON, or the error marker.
func (d Description) String() string {
	if d.Err != nil {
		return CaptureErrorMarker
	}
	elements := d.Elements
	if elements == nil {
		elements = []sanitizer.Element{}
	}
	out, err := canonicalJSON.MarshalIndent(elements, "", "  ")
	if err != nil {
		return CaptureErrorMarker
	}
	return string(out)
}

// Viewport returns the union of all element bounds and whether any were observed.
func (d Description) Viewport() (sanitizer.Rect, bool) {
	var r sanitizer.Rect
	for _, el := range d.Elements {
		r = r.Union(el.Rect)
	}
	return r, !r.Empty()
}

// ErrDumpMissing is recorded when the pulled dump file does not exist locally.
var ErrDumpMissing = errors.New("ui dump not found after pull")

// Observer captures descriptions through a device transport.
type Observer struct {
	transport   device.Transport
	remotePath  string
	localPath   string
	maxElements int
	readFile    func(string) ([]byte, error)
	logger      *zap.Logger
}

// NewObserver builds an Observer. The local path may start with "~".
func NewObserver(t device.Transport, cfg config.DeviceConfig, maxElements int, logger *zap.Logger) (*Observer, error) {
	local, err := homedir.Expand(cfg.LocalDumpPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve local dump path '%s': %w", cfg.LocalDumpPath, err)
	}
	return &Observer{
		transport:   t,
		remotePath:  cfg.RemoteDumpPath,
		localPath:   local,
		maxElements: maxElements,
		readFile:    os.ReadFile,
		logger:      logger.Named("observer"),
	}, nil
}

// LocalPath is the resolved staging file for the dump.
func (o *Observer) LocalPath() string { return o.localPath }

// Capture dumps the UI on the device, pulls it and extracts the interactive
// elements. It never fails: problems degrade to the capture error marker.
func (o *Observer) Capture(ctx context.Context) Description {
	device.DumpUI(ctx, o.transport, o.remotePath)

	// Drop the previous cycle's dump so a failed pull cannot be mistaken for a fresh one.
	if err := os.Remove(o.localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		o.logger.Warn("Could not remove stale ui dump", zap.String("path", o.localPath), zap.Error(err))
	}

	device.Pull(ctx, o.transport, o.remotePath, o.localPath)

	if _, err := os.Stat(o.localPath); err != nil {
		o.logger.Warn("Could not capture screen", zap.String("path", o.localPath), zap.Error(err))
		return Description{Err: ErrDumpMissing}
	}

	raw, err := o.readFile(o.localPath)
	if err != nil {
		o.logger.Warn("Could not read ui dump", zap.String("path", o.localPath), zap.Error(err))
		return Description{Err: fmt.Errorf("read ui dump: %w", err)}
	}

	elements, err := sanitizer.Extract(string(raw), o.maxElements)
	if err != nil {
		o.logger.Warn("Could not parse ui dump", zap.Error(err))
		return Description{Err: err}
	}

	o.logger.Debug("Screen captured", zap.Int("elements", len(elements)))
	return Description{Elements: elements}
}
