package screen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/sanitizer"
)

const settingsDump = `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>
<hierarchy rotation="0">
  <node index="0" text="Settings" resource-id="" class="android.widget.TextView" content-desc="" clickable="true" enabled="true" bounds="[440,840][560,960]" />
</hierarchy>`

// pullingTransport emulates adb: `pull` writes the configured payload to the
// local destination unless payload is nil.
type pullingTransport struct {
	payload []byte
	calls   [][]string
}

func (p *pullingTransport) Execute(_ context.Context, args ...string) string {
	p.calls = append(p.calls, args)
	if len(args) == 3 && args[0] == "pull" && p.payload != nil {
		_ = os.WriteFile(args[2], p.payload, 0o644)
	}
	return ""
}

func newTestObserver(t *testing.T, tr *pullingTransport, maxElements int) *Observer {
	t.Helper()
	cfg := config.DeviceConfig{
		RemoteDumpPath: "/sdcard/window_dump.xml",
		LocalDumpPath:  filepath.Join(t.TempDir(), "window_dump.xml"),
	}
	o, err := NewObserver(tr, cfg, maxElements, zap.NewNop())
	require.NoError(t, err)
	return o
}

func TestObserver_Capture(t *testing.T) {
	t.Run("dump, pull, extract", func(t *testing.T) {
		tr := &pullingTransport{payload: []byte(settingsDump)}
		o := newTestObserver(t, tr, 0)

		desc := o.Capture(context.Background())

		require.False(t, desc.Failed())
		require.Len(t, desc.Elements, 1)
		assert.Equal(t, "Settings", desc.Elements[0].Text)
		assert.Equal(t, [2]int{500, 900}, desc.Elements[0].Center)

		require.Len(t, tr.calls, 2)
		assert.Equal(t, []string{"shell", "uiautomator", "dump", "/sdcard/window_dump.xml"}, tr.calls[0])
		assert.Equal(t, []string{"pull", "/sdcard/window_dump.xml", o.LocalPath()}, tr.calls[1])
	})

	t.Run("missing file degrades to the error marker", func(t *testing.T) {
		tr := &pullingTransport{}
		o := newTestObserver(t, tr, 0)

		desc := o.Capture(context.Background())

		assert.True(t, desc.Failed())
		assert.ErrorIs(t, desc.Err, ErrDumpMissing)
		assert.Equal(t, CaptureErrorMarker, desc.String())
	})

	t.Run("stale dump from a previous cycle is not reused", func(t *testing.T) {
		tr := &pullingTransport{}
		o := newTestObserver(t, tr, 0)
		require.NoError(t, os.WriteFile(o.LocalPath(), []byte(settingsDump), 0o644))

		desc := o.Capture(context.Background())
		assert.True(t, desc.Failed())
	})

	t.Run("unparseable dump degrades to the error marker", func(t *testing.T) {
		tr := &pullingTransport{payload: []byte("<hierarchy><node>")}
		o := newTestObserver(t, tr, 0)

		desc := o.Capture(context.Background())
		assert.True(t, desc.Failed())
		assert.Equal(t, CaptureErrorMarker, desc.String())
	})

	t.Run("read failure degrades to the error marker", func(t *testing.T) {
		tr := &pullingTransport{payload: []byte(settingsDump)}
		o := newTestObserver(t, tr, 0)
		o.readFile = func(string) ([]byte, error) { return nil, errors.New("permission denied") }

		desc := o.Capture(context.Background())
		assert.True(t, desc.Failed())
		assert.Contains(t, desc.Err.Error(), "permission denied")
	})
}

func TestNewObserver_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	o, err := NewObserver(&pullingTransport{}, config.DeviceConfig{LocalDumpPath: "~/window_dump.xml"}, 0, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "window_dump.xml"), o.LocalPath())
}

func TestDescription_String(t *testing.T) {
	t.Run("canonical json round trips", func(t *testing.T) {
		desc := Description{Elements: []sanitizer.Element{{
			Text: "Settings", Type: "TextView", Bounds: "[440,840][560,960]",
			Center: [2]int{500, 900}, Clickable: true, Action: sanitizer.HintTap,
		}}}

		text := desc.String()
		assert.Equal(t, text, desc.String(), "serialization must be stable")
		assert.NotContains(t, text, "Rect")

		var decoded []map[string]interface{}
		require.NoError(t, jsoniter.UnmarshalFromString(text, &decoded))
		require.Len(t, decoded, 1)
		assert.Equal(t, "Settings", decoded[0]["text"])
		assert.Equal(t, []interface{}{float64(500), float64(900)}, decoded[0]["center"])
	})

	t.Run("no elements renders an empty list, not the marker", func(t *testing.T) {
		assert.Equal(t, "[]", Description{}.String())
	})
}

func TestDescription_Viewport(t *testing.T) {
	_, ok := Description{}.Viewport()
	assert.False(t, ok)

	desc := Description{Elements: []sanitizer.Element{
		{Rect: sanitizer.Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}},
		{Rect: sanitizer.Rect{Left: 50, Top: 500, Right: 1080, Bottom: 2400}},
	}}
	r, ok := desc.Viewport()
	require.True(t, ok)
	assert.Equal(t, sanitizer.Rect{Left: 0, Top: 0, Right: 1080, Bottom: 2400}, r)
}
