package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/viewport"
	"github.com/1broseidon/webdesk/internal/windows"
)

// ViewportSource selects the viewport oracle.
type ViewportSource string

const (
	ViewportStatic ViewportSource = "static" // Size comes from config and SET_VIEWPORT.
	ViewportX11    ViewportSource = "x11"    // Size follows the active X11 monitor.
)

// StoreBackend selects the icon position store.
type StoreBackend string

const (
	StoreFile   StoreBackend = "file"
	StoreSQLite StoreBackend = "sqlite"
	StoreMemory StoreBackend = "memory"
)

// ViewportConfig describes where the desktop's drawing area comes from.
type ViewportConfig struct {
	Source ViewportSource `yaml:"source"`
	Width  float64        `yaml:"width"`
	Height float64        `yaml:"height"`
	// Display overrides $DISPLAY for the x11 source.
	Display string `yaml:"display,omitempty"`
	// PollIntervalMS is how often the x11 source re-reads the monitor.
	PollIntervalMS int `yaml:"poll_interval_ms"`
}

// WindowsConfig tunes the window registry.
type WindowsConfig struct {
	MaxZ          int     `yaml:"max_z"`
	ZTieBreak     string  `yaml:"z_tie_break"`
	OpenWidth     float64 `yaml:"open_width"`
	OpenHeight    float64 `yaml:"open_height"`
	RestoreWidth  float64 `yaml:"restore_width"`
	RestoreHeight float64 `yaml:"restore_height"`
	RestoreX      float64 `yaml:"restore_x"`
	RestoreY      float64 `yaml:"restore_y"`
	TileGap       float64 `yaml:"tile_gap"`
}

// GridConfig holds the icon grid constants for both device classes.
type GridConfig struct {
	Breakpoint   float64        `yaml:"breakpoint"`
	SearchRadius int            `yaml:"search_radius"`
	Normal       icons.GridSpec `yaml:"normal"`
	Compact      icons.GridSpec `yaml:"compact"`
}

// DragConfig tunes pointer handling.
type DragConfig struct {
	Threshold          float64 `yaml:"threshold"`
	ClickSuppressionMS int     `yaml:"click_suppression_ms"`
	ResizeDebounceMS   int     `yaml:"resize_debounce_ms"`
}

// StoreConfig selects where icon positions are persisted. An empty path
// uses the backend's default location under the config directory.
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend"`
	Path    string       `yaml:"path,omitempty"`
}

// LoggingConfig configures the daemon logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// IconConfig is a desktop shortcut placed at startup.
type IconConfig struct {
	ID    string     `yaml:"id,omitempty"`
	Kind  icons.Kind `yaml:"kind"`
	Ref   string     `yaml:"ref"`
	Label string     `yaml:"label,omitempty"`
}

// Config holds the application configuration.
type Config struct {
	Include       IncludeList    `yaml:"include,omitempty"`
	Viewport      ViewportConfig `yaml:"viewport"`
	TaskbarHeight float64        `yaml:"taskbar_height"`
	Windows       WindowsConfig  `yaml:"windows"`
	Grid          GridConfig     `yaml:"grid"`
	Drag          DragConfig     `yaml:"drag"`
	Store         StoreConfig    `yaml:"store"`
	Logging       LoggingConfig  `yaml:"logging"`
	Icons         []IconConfig   `yaml:"icons"`
}

func DefaultConfig() *Config {
	return &Config{
		Viewport: ViewportConfig{
			Source:         ViewportStatic,
			Width:          1280,
			Height:         800,
			PollIntervalMS: 1000,
		},
		TaskbarHeight: viewport.TaskbarHeight,
		Windows: WindowsConfig{
			MaxZ:          windows.DefaultMaxZ,
			ZTieBreak:     string(windows.TieBreakRecent),
			OpenWidth:     windows.DefaultOpenWidth,
			OpenHeight:    windows.DefaultOpenHeight,
			RestoreWidth:  windows.DefaultRestoreWidth,
			RestoreHeight: windows.DefaultRestoreHeight,
			RestoreX:      windows.DefaultRestoreX,
			RestoreY:      windows.DefaultRestoreY,
			TileGap:       8,
		},
		Grid: GridConfig{
			Breakpoint:   viewport.CompactBreakpoint,
			SearchRadius: icons.DefaultSearchRadius,
			Normal:       icons.NormalGrid,
			Compact:      icons.CompactGrid,
		},
		Drag: DragConfig{
			Threshold:          5,
			ClickSuppressionMS: 150,
			ResizeDebounceMS:   200,
		},
		Store: StoreConfig{Backend: StoreFile},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Icons: []IconConfig{
			{Kind: icons.KindApplication, Ref: "terminal", Label: "Terminal"},
			{Kind: icons.KindApplication, Ref: "mail", Label: "Mail"},
			{Kind: icons.KindApplication, Ref: "files", Label: "Files"},
		},
	}
}

// WindowOptions converts the windows section for the registry.
func (c *Config) WindowOptions() windows.Options {
	tieBreak, _ := windows.ParseTieBreak(c.Windows.ZTieBreak)
	taskbar := c.TaskbarHeight
	if taskbar == 0 {
		taskbar = windows.NoTaskbar
	}
	return windows.Options{
		MaxZ:            c.Windows.MaxZ,
		TaskbarHeight:   taskbar,
		OpenSize:        geom.Size{Width: c.Windows.OpenWidth, Height: c.Windows.OpenHeight},
		RestoreSize:     geom.Size{Width: c.Windows.RestoreWidth, Height: c.Windows.RestoreHeight},
		RestorePosition: geom.Point{X: c.Windows.RestoreX, Y: c.Windows.RestoreY},
		TieBreak:        tieBreak,
	}
}

// GridSpecs converts the grid section for the icon engine.
func (c *Config) GridSpecs() icons.Specs {
	return icons.Specs{
		Normal:       c.Grid.Normal,
		Compact:      c.Grid.Compact,
		Breakpoint:   c.Grid.Breakpoint,
		SearchRadius: c.Grid.SearchRadius,
	}
}

// ClickSuppression returns the post-drag click suppression window.
func (c *Config) ClickSuppression() time.Duration {
	return time.Duration(c.Drag.ClickSuppressionMS) * time.Millisecond
}

// ResizeDebounce returns the viewport resize debounce delay.
func (c *Config) ResizeDebounce() time.Duration {
	return time.Duration(c.Drag.ResizeDebounceMS) * time.Millisecond
}

// PollInterval returns the x11 viewport poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Viewport.PollIntervalMS) * time.Millisecond
}

// DesktopIcons returns the configured icons with their ids derived.
func (c *Config) DesktopIcons() []icons.Icon {
	out := make([]icons.Icon, 0, len(c.Icons))
	for _, ic := range c.Icons {
		id := ic.ID
		if id == "" {
			id = icons.IconID(ic.Kind, ic.Ref)
		}
		out = append(out, icons.Icon{
			ID:    id,
			Kind:  ic.Kind,
			Ref:   ic.Ref,
			Label: ic.Label,
		})
	}
	return out
}

// StorePath returns the configured store location, or the default one
// for the backend.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return expandHome(c.Store.Path)
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	switch c.Store.Backend {
	case StoreSQLite:
		return filepath.Join(dir, "state.db"), nil
	default:
		return filepath.Join(dir, "state"), nil
	}
}

// NewLogger builds the daemon logger described by the logging section.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(l.Level)}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Save writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments
// or include structure from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	save := *c
	save.Include = nil
	data, err := yaml.Marshal(&save)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.Viewport.Source {
	case ViewportStatic, ViewportX11:
	default:
		return &ValidationError{Path: "viewport.source", Err: fmt.Errorf("viewport.source must be one of: static, x11")}
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return &ValidationError{Path: "viewport", Err: fmt.Errorf("viewport width and height must be > 0")}
	}
	if c.Viewport.PollIntervalMS < 0 {
		return &ValidationError{Path: "viewport.poll_interval_ms", Err: fmt.Errorf("poll_interval_ms must be >= 0")}
	}
	if c.TaskbarHeight < 0 {
		return &ValidationError{Path: "taskbar_height", Err: fmt.Errorf("taskbar_height must be >= 0")}
	}

	if c.Windows.MaxZ < 1 {
		return &ValidationError{Path: "windows.max_z", Err: fmt.Errorf("max_z must be >= 1")}
	}
	if _, err := windows.ParseTieBreak(c.Windows.ZTieBreak); err != nil {
		return &ValidationError{Path: "windows.z_tie_break", Err: err}
	}
	if c.Windows.OpenWidth <= 0 || c.Windows.OpenHeight <= 0 {
		return &ValidationError{Path: "windows.open_width", Err: fmt.Errorf("open_width and open_height must be > 0")}
	}
	if c.Windows.RestoreWidth <= 0 || c.Windows.RestoreHeight <= 0 {
		return &ValidationError{Path: "windows.restore_width", Err: fmt.Errorf("restore_width and restore_height must be > 0")}
	}
	if c.Windows.TileGap < 0 {
		return &ValidationError{Path: "windows.tile_gap", Err: fmt.Errorf("tile_gap must be >= 0")}
	}

	if c.Grid.Breakpoint < 0 {
		return &ValidationError{Path: "grid.breakpoint", Err: fmt.Errorf("breakpoint must be >= 0")}
	}
	if c.Grid.SearchRadius < 1 {
		return &ValidationError{Path: "grid.search_radius", Err: fmt.Errorf("search_radius must be >= 1")}
	}
	if err := validateGridSpec(c.Grid.Normal); err != nil {
		return &ValidationError{Path: "grid.normal", Err: err}
	}
	if err := validateGridSpec(c.Grid.Compact); err != nil {
		return &ValidationError{Path: "grid.compact", Err: err}
	}

	if c.Drag.Threshold <= 0 {
		return &ValidationError{Path: "drag.threshold", Err: fmt.Errorf("threshold must be > 0")}
	}
	if c.Drag.ClickSuppressionMS <= 0 {
		return &ValidationError{Path: "drag.click_suppression_ms", Err: fmt.Errorf("click_suppression_ms must be > 0")}
	}
	if c.Drag.ResizeDebounceMS <= 0 {
		return &ValidationError{Path: "drag.resize_debounce_ms", Err: fmt.Errorf("resize_debounce_ms must be > 0")}
	}

	switch c.Store.Backend {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return &ValidationError{Path: "store.backend", Err: fmt.Errorf("store.backend must be one of: file, sqlite, memory")}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("logging.level must be one of: debug, info, warn, error")}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return &ValidationError{Path: "logging.format", Err: fmt.Errorf("logging.format must be one of: text, json")}
	}

	seen := make(map[string]struct{}, len(c.Icons))
	for i, ic := range c.Icons {
		path := fmt.Sprintf("icons.%d", i)
		if _, ok := icons.ParseKind(string(ic.Kind)); !ok {
			return &ValidationError{Path: path + ".kind", Err: fmt.Errorf("kind must be one of: application, file, folder")}
		}
		if strings.TrimSpace(ic.Ref) == "" && strings.TrimSpace(ic.ID) == "" {
			return &ValidationError{Path: path, Err: fmt.Errorf("icon needs a ref or an id")}
		}
		id := ic.ID
		if id == "" {
			id = icons.IconID(ic.Kind, ic.Ref)
		}
		if _, dup := seen[id]; dup {
			return &ValidationError{Path: path, Err: fmt.Errorf("duplicate icon id %q", id)}
		}
		seen[id] = struct{}{}
	}

	return nil
}

func validateGridSpec(s icons.GridSpec) error {
	if s.CellSize <= 0 {
		return fmt.Errorf("cell_size must be > 0")
	}
	if s.IconWidth <= 0 || s.IconHeight <= 0 {
		return fmt.Errorf("icon_width and icon_height must be > 0")
	}
	if s.Origin < 0 || s.Reservation < 0 {
		return fmt.Errorf("origin and reservation must be >= 0")
	}
	return nil
}

// ValidationError points at the offending config path and, when known,
// the file position that set it.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }
