package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/windows"
)

func writeConfig(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.TaskbarHeight != 48 {
		t.Fatalf("expected taskbar_height 48, got %v", cfg.TaskbarHeight)
	}
	if cfg.Grid.Normal != icons.NormalGrid || cfg.Grid.Compact != icons.CompactGrid {
		t.Fatalf("expected stock grid specs, got %+v", cfg.Grid)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Windows.MaxZ != windows.DefaultMaxZ {
		t.Fatalf("expected default max_z, got %d", res.Config.Windows.MaxZ)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files loaded, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Drag.ClickSuppressionMS != 150 {
		t.Fatalf("expected default suppression, got %d", res.Config.Drag.ClickSuppressionMS)
	}
}

func TestLoadFromPath_PartialSectionKeepsOtherDefaults(t *testing.T) {
	data := strings.Join([]string{
		"windows:",
		"  z_tie_break: stable",
		"grid:",
		"  compact:",
		"    cell_size: 64",
		"",
	}, "\n")
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Windows.ZTieBreak != "stable" {
		t.Fatalf("expected z_tie_break stable, got %q", cfg.Windows.ZTieBreak)
	}
	if cfg.Windows.MaxZ != windows.DefaultMaxZ {
		t.Fatalf("expected max_z default to survive, got %d", cfg.Windows.MaxZ)
	}
	if cfg.Grid.Compact.CellSize != 64 || cfg.Grid.Compact.IconWidth != icons.CompactGrid.IconWidth {
		t.Fatalf("expected compact cell 64 with other fields kept, got %+v", cfg.Grid.Compact)
	}
	if got := cfg.WindowOptions().TieBreak; got != windows.TieBreakStable {
		t.Fatalf("expected registry tie-break stable, got %q", got)
	}
}

func TestWindowOptions_ZeroTaskbarDisablesReservation(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.WindowOptions().TaskbarHeight; got != 48 {
		t.Fatalf("expected taskbar 48, got %v", got)
	}
	cfg.TaskbarHeight = 0
	if got := cfg.WindowOptions().TaskbarHeight; got != windows.NoTaskbar {
		t.Fatalf("expected NoTaskbar for taskbar_height 0, got %v", got)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") && !strings.Contains(err.Error(), "field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSourceContext(t *testing.T) {
	data := "drag:\n  threshold: 5\n  click_suppression_ms: -1\n"
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "drag.click_suppression_ms" {
		t.Fatalf("expected path drag.click_suppression_ms, got %q", verr.Path)
	}
	if verr.Source.Line != 3 {
		t.Fatalf("expected line 3, got %d", verr.Source.Line)
	}
	if !strings.Contains(err.Error(), path+":3:") {
		t.Fatalf("expected file:line prefix, got %v", err)
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()

	// config.d loaded first, in sorted order.
	configD := filepath.Join(dir, "config.d")
	if err := os.MkdirAll(configD, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, configD, "10-base.yaml", "taskbar_height: 40\nwindows:\n  tile_gap: 2\n")
	writeConfig(t, configD, "20-override.yaml", "taskbar_height: 44\n")

	// Main file overrides includes.
	main := strings.Join([]string{
		"include:",
		"  - config.d",
		"taskbar_height: 56",
		"",
	}, "\n")
	path := writeConfig(t, dir, "config.yaml", main)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.TaskbarHeight != 56 {
		t.Fatalf("expected taskbar_height 56, got %v", res.Config.TaskbarHeight)
	}
	if res.Config.Windows.TileGap != 2 {
		t.Fatalf("expected tile_gap from include, got %v", res.Config.Windows.TileGap)
	}
	if len(res.Files) != 3 || res.Files[2] != res.Files[len(res.Files)-1] || !strings.HasSuffix(res.Files[2], "config.yaml") {
		t.Fatalf("expected includes then main file, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeMissingPathHasContext(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "include:\n  - missing.yaml\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "include") || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("expected include error, got %v", err)
	}
	if !strings.Contains(err.Error(), path+":") {
		t.Fatalf("expected error to include file:line:col prefix, got %v", err)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	a := writeConfig(t, dir, "a.yaml", "include: b.yaml\n")
	writeConfig(t, dir, "b.yaml", "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestLoadFromPath_IconsReplaceDefaults(t *testing.T) {
	data := strings.Join([]string{
		"icons:",
		"  - kind: folder",
		"    ref: documents",
		"    label: Documents",
		"  - kind: file",
		"    ref: readme.txt",
		"",
	}, "\n")
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := res.Config.DesktopIcons()
	if len(got) != 2 {
		t.Fatalf("expected 2 icons, got %d", len(got))
	}
	if got[0].ID != "folder-documents" || got[1].ID != "file-readme.txt" {
		t.Fatalf("unexpected icon ids %q, %q", got[0].ID, got[1].ID)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"viewport source", func(c *Config) { c.Viewport.Source = "wayland" }, "viewport.source"},
		{"tie break", func(c *Config) { c.Windows.ZTieBreak = "oldest" }, "windows.z_tie_break"},
		{"max z", func(c *Config) { c.Windows.MaxZ = 0 }, "windows.max_z"},
		{"cell size", func(c *Config) { c.Grid.Normal.CellSize = 0 }, "grid.normal"},
		{"search radius", func(c *Config) { c.Grid.SearchRadius = 0 }, "grid.search_radius"},
		{"store backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"icon kind", func(c *Config) { c.Icons[0].Kind = "widget" }, "icons.0.kind"},
		{"duplicate icon", func(c *Config) { c.Icons[1] = c.Icons[0] }, "icons.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, verr.Path)
			}
		})
	}
}

func TestExplain(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "viewport:\n  width: 1920\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "viewport.width")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 1920 {
		t.Fatalf("expected 1920, got %#v", val)
	}
	if src.Kind != SourceFile || src.Line != 2 {
		t.Fatalf("expected file source at line 2, got %#v", src)
	}

	val, src, err = Explain(res, "icons.1.ref")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != "mail" || src.Kind != SourceDefault {
		t.Fatalf("expected default mail icon, got %#v from %#v", val, src)
	}

	if _, _, err := Explain(res, "viewport.depth"); err == nil {
		t.Fatal("expected unknown path error")
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ClickSuppression() != 150*time.Millisecond {
		t.Fatalf("unexpected suppression %v", cfg.ClickSuppression())
	}
	if cfg.ResizeDebounce() != 200*time.Millisecond {
		t.Fatalf("unexpected debounce %v", cfg.ResizeDebounce())
	}
}

func TestStorePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfig()
	got, err := cfg.StorePath()
	if err != nil {
		t.Fatalf("StorePath: %v", err)
	}
	if want := filepath.Join(home, ".config", "webdesk", "state"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	cfg.Store.Backend = StoreSQLite
	got, _ = cfg.StorePath()
	if want := filepath.Join(home, ".config", "webdesk", "state.db"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	cfg.Store.Path = "~/desk.db"
	got, _ = cfg.StorePath()
	if want := filepath.Join(home, "desk.db"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "id", "Calc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"id":"Calc"`) {
		t.Fatalf("expected JSON record, got %s", out)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Viewport.Width = 1440
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Viewport.Width != 1440 {
		t.Fatalf("expected width 1440 after round trip, got %v", res.Config.Viewport.Width)
	}
}
