// Package tui is an interactive terminal view of the running desktop.
package tui

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/webdesk/internal/desktop"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/ipc"
)

// Desk is the part of the daemon client the TUI uses. *ipc.Client
// implements it.
type Desk interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() (*ipc.WindowsData, error)
	ListIcons() (*ipc.IconsData, error)
	OpenWindow(p ipc.OpenWindowPayload) (*ipc.WindowResult, error)
	CloseWindow(id string) (*ipc.WindowResult, error)
	FocusWindow(id string) (*ipc.WindowResult, error)
	MinimizeWindow(id string) (*ipc.WindowResult, error)
	MaximizeWindow(id string) (*ipc.WindowResult, error)
	RestoreWindow(id string) (*ipc.WindowResult, error)
	TileWindows(gap *float64) (int, error)
	AddIcon(kind icons.Kind, ref, label, id string) (*ipc.IconResult, error)
	RemoveIcon(id string) (*ipc.IconResult, error)
	ArrangeIcons() (*ipc.IconsData, error)
	Subscribe(ctx context.Context, fn func(desktop.Event)) error
}

// Run starts the TUI and blocks until the user quits.
func Run(desk Desk) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	m := newModel(desk)
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		m.width, m.height = w, h
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		err := desk.Subscribe(ctx, func(ev desktop.Event) {
			p.Send(eventMsg{event: ev})
		})
		if ctx.Err() == nil {
			p.Send(subscribeEndedMsg{err: err})
		}
	}()

	_, err := p.Run()
	return err
}
