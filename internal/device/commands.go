package device

import (
	"context"
	"strconv"
	"strings"
)

// Android key event codes used by the agent.
const (
	KeycodeHome = 3
	KeycodeBack = 4
)

// SpaceEscape is the token `adb shell input text` expands to a space.
const SpaceEscape = "%s"

// DumpUI asks uiautomator to write the current window hierarchy to remotePath.
func DumpUI(ctx context.Context, t Transport, remotePath string) string {
	return t.Execute(ctx, "shell", "uiautomator", "dump", remotePath)
}

// Pull copies remotePath from the device to localPath.
func Pull(ctx context.Context, t Transport, remotePath, localPath string) string {
	return t.Execute(ctx, "pull", remotePath, localPath)
}

// Tap sends a single tap at (x, y). Coordinates are passed through unchecked.
func Tap(ctx context.Context, t Transport, x, y int) string {
	return t.Execute(ctx, "shell", "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
}

// InputText types text into the focused field. Spaces are replaced with
// SpaceEscape; no other character is escaped.
func InputText(ctx context.Context, t Transport, text string) string {
	return t.Execute(ctx, "shell", "input", "text", EscapeText(text))
}

// EscapeText applies the adb input text escaping for spaces.
func EscapeText(text string) string {
	return strings.ReplaceAll(text, " ", SpaceEscape)
}

// KeyEvent sends a hardware key event.
func KeyEvent(ctx context.Context, t Transport, code int) string {
	return t.Execute(ctx, "shell", "input", "keyevent", strconv.Itoa(code))
}

// Info describes one line of `adb devices -l`.
type Info struct {
	Serial     string
	State      string
	Attributes map[string]string
}

// ListDevices returns the devices adb currently sees.
func ListDevices(ctx context.Context, t Transport) []Info {
	return parseDevices(t.Execute(ctx, "devices", "-l"))
}

func parseDevices(out string) []Info {
	var devices []Info
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		info := Info{Serial: fields[0], State: fields[1], Attributes: map[string]string{}}
		for _, attr := range fields[2:] {
			if k, v, ok := strings.Cut(attr, ":"); ok {
				info.Attributes[k] = v
			}
		}
		devices = append(devices, info)
	}
	return devices
}
