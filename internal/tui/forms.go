package tui

import (
	"errors"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/ipc"
)

type formKind int

const (
	formNone formKind = iota
	formOpenWindow
	formAddIcon
)

// formValues is shared by pointer so huh bindings survive model copies.
type formValues struct {
	id     string
	title  string
	width  string
	height string

	kind  string
	ref   string
	label string
}

// formOverlay hosts the active huh form, if any.
type formOverlay struct {
	kind formKind
	form *huh.Form
	vals *formValues
}

func (f formOverlay) Active() bool { return f.kind != formNone && f.form != nil }

func optionalSize(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return errors.New("must be a positive number")
	}
	return nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func newOpenWindowForm() formOverlay {
	v := &formValues{}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Window id").
				Value(&v.id).
				Validate(required),
			huh.NewInput().
				Title("Title").
				Value(&v.title),
			huh.NewInput().
				Title("Width").
				Description("Pixels; blank for the default").
				Value(&v.width).
				Validate(optionalSize),
			huh.NewInput().
				Title("Height").
				Description("Pixels; blank for the default").
				Value(&v.height).
				Validate(optionalSize),
		),
	)
	return formOverlay{kind: formOpenWindow, form: form, vals: v}
}

func newAddIconForm() formOverlay {
	v := &formValues{kind: string(icons.KindApplication)}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Kind").
				Options(
					huh.NewOption("Application", string(icons.KindApplication)),
					huh.NewOption("File", string(icons.KindFile)),
					huh.NewOption("Folder", string(icons.KindFolder)),
				).
				Value(&v.kind),
			huh.NewInput().
				Title("Reference").
				Description("Application name, file name or folder path").
				Value(&v.ref).
				Validate(required),
			huh.NewInput().
				Title("Label").
				Value(&v.label),
		),
	)
	return formOverlay{kind: formAddIcon, form: form, vals: v}
}

func parseSize(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// openWindowPayload converts completed open-window values.
func (v *formValues) openWindowPayload() ipc.OpenWindowPayload {
	return ipc.OpenWindowPayload{
		ID:     strings.TrimSpace(v.id),
		Title:  strings.TrimSpace(v.title),
		Width:  parseSize(v.width),
		Height: parseSize(v.height),
	}
}

// Update forwards msg to the form. done reports that the form finished,
// either completed or aborted.
func (f formOverlay) Update(msg tea.Msg) (formOverlay, tea.Cmd, bool) {
	model, cmd := f.form.Update(msg)
	if form, ok := model.(*huh.Form); ok {
		f.form = form
	}
	switch f.form.State {
	case huh.StateCompleted, huh.StateAborted:
		return f, nil, true
	}
	return f, cmd, false
}

func (f formOverlay) Completed() bool {
	return f.form != nil && f.form.State == huh.StateCompleted
}

func (f formOverlay) View() string {
	if f.form == nil {
		return ""
	}
	return f.form.View()
}
