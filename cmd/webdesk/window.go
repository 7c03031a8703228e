package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/google/uuid"

	"github.com/1broseidon/webdesk/internal/ipc"
	"github.com/1broseidon/webdesk/internal/tiling"
	"github.com/1broseidon/webdesk/internal/windows"
)

func printWindowUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  webdesk window list [--json]")
	fmt.Fprintln(w, "  webdesk window open [--title T] [--icon I] [--width W] [--height H] [id]")
	fmt.Fprintln(w, "  webdesk window close|focus|minimize|maximize|restore <id>")
	fmt.Fprintln(w, "  webdesk window move [--x X] [--y Y] [--width W] [--height H] <id>")
	fmt.Fprintln(w, "  webdesk window show|hide <id>")
	fmt.Fprintln(w, "  webdesk window snap <id> <region>")
	fmt.Fprintln(w, "  webdesk window tile [--gap N]")
	fmt.Fprintln(w, "  webdesk window normalize")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'webdesk window <command> --help' for command-specific options.")
}

func printWindow(w windows.Window) {
	g := w.Geometry
	name := w.Title
	if name == "" {
		name = "-"
	}
	fmt.Printf("%-20s z=%-4d %-9s %sx%s @ %g,%g  %s\n",
		w.ID, w.ZIndex, w.State(), g.Width, g.Height, g.X, g.Y, name)
}

// reportWindow prints the outcome of a single-window command.
// frontFirst reverses the daemon's back-to-front listing.
func frontFirst(ws []windows.Window) []windows.Window {
	out := slices.Clone(ws)
	slices.Reverse(out)
	return out
}

func reportWindow(id string, res *ipc.WindowResult, err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if res.Window == nil {
		if res.Changed {
			fmt.Printf("%s: closed\n", id)
			return 0
		}
		fmt.Fprintf(os.Stderr, "window %q not found\n", id)
		return 1
	}
	if !res.Changed {
		fmt.Printf("%s: unchanged\n", id)
	}
	printWindow(*res.Window)
	return 0
}

func runWindow(args []string) int {
	if len(args) == 0 {
		printWindowUsage(os.Stderr)
		return 2
	}
	if isHelp(args[0]) {
		printWindowUsage(os.Stdout)
		return 0
	}

	client := ipc.NewClient()

	switch args[0] {
	case "list":
		fs := newFlagSet("list", "webdesk window list [--json]", "List open windows, topmost first.")
		jsonOut := fs.Bool("json", false, "Output full window details as JSON")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		data, err := client.ListWindows()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if *jsonOut {
			return printJSON(data)
		}
		for _, w := range frontFirst(data.Windows) {
			printWindow(w)
		}
		return 0

	case "open":
		fs := newFlagSet("open", "webdesk window open [--title T] [--icon I] [--width W] [--height H] [id]",
			"Open a window centered in the viewport. A random id is used when none is given.")
		title := fs.String("title", "", "Title bar text")
		icon := fs.String("icon", "", "Icon reference")
		width := fs.Float64("width", 0, "Initial width in pixels (default from config)")
		height := fs.Float64("height", 0, "Initial height in pixels (default from config)")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		if *width < 0 || *height < 0 {
			fmt.Fprintln(os.Stderr, "width and height must be >= 0")
			return 2
		}
		id := fs.Arg(0)
		if id == "" {
			id = "win-" + uuid.NewString()[:8]
		}
		res, err := client.OpenWindow(ipc.OpenWindowPayload{
			ID:     id,
			Title:  *title,
			Icon:   *icon,
			Width:  *width,
			Height: *height,
		})
		return reportWindow(id, res, err)

	case "close", "focus", "minimize", "maximize", "restore", "show", "hide":
		verb := args[0]
		fs := newFlagSet(verb, "webdesk window "+verb+" <id>", "Apply "+verb+" to one window.")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		if fs.NArg() != 1 {
			fmt.Fprintf(os.Stderr, "window %s requires <id>\n", verb)
			fs.Usage()
			return 2
		}
		id := fs.Arg(0)
		var res *ipc.WindowResult
		var err error
		switch verb {
		case "close":
			res, err = client.CloseWindow(id)
		case "focus":
			res, err = client.FocusWindow(id)
		case "minimize":
			res, err = client.MinimizeWindow(id)
		case "maximize":
			res, err = client.MaximizeWindow(id)
		case "restore":
			res, err = client.RestoreWindow(id)
		case "show":
			res, err = client.SetVisible(id, true)
		case "hide":
			res, err = client.SetVisible(id, false)
		}
		return reportWindow(id, res, err)

	case "move":
		fs := newFlagSet("move", "webdesk window move [--x X] [--y Y] [--width W] [--height H] <id>",
			"Change a window's position or size. Unset flags keep their current value.")
		x := fs.Float64("x", 0, "Left edge in pixels")
		y := fs.Float64("y", 0, "Top edge in pixels")
		width := fs.Float64("width", 0, "Width in pixels")
		height := fs.Float64("height", 0, "Height in pixels")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "window move requires <id>")
			fs.Usage()
			return 2
		}

		var patch windows.GeometryPatch
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "x":
				patch.X = x
			case "y":
				patch.Y = y
			case "width":
				w := windows.Px(*width)
				patch.Width = &w
			case "height":
				h := windows.Px(*height)
				patch.Height = &h
			}
		})
		if patch == (windows.GeometryPatch{}) {
			fmt.Fprintln(os.Stderr, "window move needs at least one of --x, --y, --width, --height")
			return 2
		}
		res, err := client.SetGeometry(fs.Arg(0), patch)
		return reportWindow(fs.Arg(0), res, err)

	case "snap":
		fs := newFlagSet("snap", "webdesk window snap <id> <region>", "Snap a window to a region of the usable area.")
		fs.Usage = func() {
			fmt.Fprintln(os.Stderr, "Usage: webdesk window snap <id> <region>")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Regions:")
			for _, r := range tiling.Regions() {
				fmt.Fprintf(os.Stderr, "  %s\n", r)
			}
		}
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		if fs.NArg() != 2 {
			fmt.Fprintln(os.Stderr, "window snap requires <id> <region>")
			fs.Usage()
			return 2
		}
		if _, err := tiling.ParseRegion(fs.Arg(1)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		res, err := client.SnapWindow(fs.Arg(0), fs.Arg(1))
		return reportWindow(fs.Arg(0), res, err)

	case "tile":
		fs := newFlagSet("tile", "webdesk window tile [--gap N]", "Tile every visible, non-minimized window.")
		gap := fs.Float64("gap", -1, "Gap between windows in pixels (default from config)")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		var gapArg *float64
		if *gap >= 0 {
			gapArg = gap
		}
		n, err := client.TileWindows(gapArg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("tiled %d window(s)\n", n)
		return 0

	case "normalize":
		fs := newFlagSet("normalize", "webdesk window normalize", "Renumber z-indices to 1..n, keeping the stacking order.")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		n, err := client.NormalizeZ()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("normalized %d window(s)\n", n)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown window command: %s\n\n", args[0])
		printWindowUsage(os.Stderr)
		return 2
	}
}
