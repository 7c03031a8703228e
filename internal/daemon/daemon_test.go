package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/ipc"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("os/signal.signal_recv"),
		goleak.IgnoreAnyFunction("os/signal.loop"),
	)
}

const baseConfig = `
viewport:
  source: static
  width: 1024
  height: 768
store:
  backend: memory
logging:
  level: error
icons:
  - kind: application
    ref: terminal
`

type testDaemon struct {
	d       *Daemon
	client  *ipc.Client
	cfgPath string
	pidPath string
	cancel  context.CancelFunc
	done    chan error
}

func startDaemon(t *testing.T, watch bool) *testDaemon {
	t.Helper()

	// Unix socket paths are length-limited; keep them short.
	dir, err := os.MkdirTemp("", "wd-daemon")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(baseConfig), 0644))

	td := &testDaemon{
		cfgPath: cfgPath,
		pidPath: filepath.Join(dir, "webdesk.pid"),
		done:    make(chan error, 1),
	}
	sock := filepath.Join(dir, "s.sock")

	td.d, err = New(Options{
		ConfigPath:  cfgPath,
		SocketPath:  sock,
		PIDPath:     td.pidPath,
		WatchConfig: watch,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	td.cancel = cancel
	go func() { td.done <- td.d.Run(ctx) }()
	t.Cleanup(td.stop)

	td.client = ipc.NewClientAt(sock)
	require.Eventually(t, func() bool {
		_, err := td.client.GetStatus()
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
	return td
}

func (td *testDaemon) stop() {
	if td.cancel == nil {
		return
	}
	td.cancel()
	<-td.done
	td.cancel = nil
}

func (td *testDaemon) rewrite(t *testing.T, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(td.cfgPath, []byte(body), 0644))
}

func TestDaemon_ServesDesktop(t *testing.T) {
	td := startDaemon(t, false)

	st, err := td.client.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "static", st.ViewportSource)
	assert.Equal(t, 1, st.Icons)
	assert.Equal(t, geom.Size{Width: 1024, Height: 768}, st.Viewport)

	pid, err := ReadPID(td.pidPath)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	res, err := td.client.OpenWindow(ipc.OpenWindowPayload{ID: "calc", Width: 500, Height: 500})
	require.NoError(t, err)
	assert.Equal(t, 262.0, res.Window.Geometry.X)

	td.stop()
	_, err = os.Stat(td.pidPath)
	assert.True(t, os.IsNotExist(err), "pid file should be removed on exit")
}

func TestDaemon_ReloadAppliesTuning(t *testing.T) {
	td := startDaemon(t, false)

	td.rewrite(t, baseConfig+`  - kind: folder
    ref: docs
windows:
  tile_gap: 16
`)
	require.NoError(t, td.client.Reload())

	icons, err := td.client.ListIcons()
	require.NoError(t, err)
	ids := make([]string, 0, len(icons.Icons))
	for _, ic := range icons.Icons {
		ids = append(ids, ic.ID)
	}
	assert.ElementsMatch(t, []string{"app-terminal", "folder-docs"}, ids)
	assert.Equal(t, 16.0, td.d.Config().Windows.TileGap)
}

func TestDaemon_ReloadAppliesStaticViewport(t *testing.T) {
	td := startDaemon(t, false)

	td.rewrite(t, `
viewport:
  source: static
  width: 640
  height: 480
store:
  backend: memory
`)
	require.NoError(t, td.client.Reload())

	require.Eventually(t, func() bool {
		st, err := td.client.GetStatus()
		return err == nil && st.Viewport == geom.Size{Width: 640, Height: 480} && st.Compact
	}, 3*time.Second, 20*time.Millisecond)
}

func TestDaemon_ReloadRejectsInvalidConfig(t *testing.T) {
	td := startDaemon(t, false)

	td.rewrite(t, "viewport:\n  bogus: true\n")
	require.Error(t, td.client.Reload())

	// The previous configuration stays in effect.
	assert.Equal(t, 1024.0, td.d.Config().Viewport.Width)
}

func TestDaemon_WatchConfig(t *testing.T) {
	td := startDaemon(t, true)

	td.rewrite(t, baseConfig+`  - kind: file
    ref: notes.txt
`)

	require.Eventually(t, func() bool {
		st, err := td.client.GetStatus()
		return err == nil && st.Icons == 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWritePIDFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run", "webdesk.pid")

	require.NoError(t, writePIDFile(path))
	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	removePIDFile(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWritePIDFile_LiveOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webdesk.pid")
	// The test binary's parent is alive for the duration of the test.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getppid())), 0600))

	err := writePIDFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestWritePIDFile_StaleOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webdesk.pid")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0600))

	require.NoError(t, writePIDFile(path))
	pid, err := ReadPID(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}
