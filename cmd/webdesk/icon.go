package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/ipc"
)

func printIconUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  webdesk icon list [--json]")
	fmt.Fprintln(w, "  webdesk icon add [--label L] [--id ID] <application|file|folder> <ref>")
	fmt.Fprintln(w, "  webdesk icon remove <id>")
	fmt.Fprintln(w, "  webdesk icon move <id> <x> <y>")
	fmt.Fprintln(w, "  webdesk icon drag [--steps N] <id> <from-x> <from-y> <to-x> <to-y>")
	fmt.Fprintln(w, "  webdesk icon click <id>")
	fmt.Fprintln(w, "  webdesk icon arrange")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'webdesk icon <command> --help' for command-specific options.")
}

func printIcon(ic icons.Icon) {
	label := ic.Label
	if label == "" {
		label = "-"
	}
	fmt.Printf("%-24s %-12s @ %g,%g  %s\n", ic.ID, ic.Kind, ic.Position.X, ic.Position.Y, label)
}

func reportIcon(id string, res *ipc.IconResult, err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if res.Icon == nil {
		if res.Changed {
			fmt.Printf("%s: removed\n", id)
			return 0
		}
		fmt.Fprintf(os.Stderr, "icon %q not found\n", id)
		return 1
	}
	if !res.Changed {
		fmt.Printf("%s: unchanged\n", id)
	}
	printIcon(*res.Icon)
	return 0
}

// parseCoords parses consecutive numeric arguments.
func parseCoords(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", a)
		}
		out[i] = v
	}
	return out, nil
}

func runIcon(args []string) int {
	if len(args) == 0 {
		printIconUsage(os.Stderr)
		return 2
	}
	if isHelp(args[0]) {
		printIconUsage(os.Stdout)
		return 0
	}

	client := ipc.NewClient()

	switch args[0] {
	case "list":
		fs := newFlagSet("list", "webdesk icon list [--json]", "List desktop icons in layout order.")
		jsonOut := fs.Bool("json", false, "Output icons and grid spec as JSON")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		data, err := client.ListIcons()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if *jsonOut {
			return printJSON(data)
		}
		fmt.Printf("grid: cell=%g compact=%v\n", data.Grid.CellSize, data.Compact)
		for _, ic := range data.Icons {
			printIcon(ic)
		}
		return 0

	case "add":
		fs := newFlagSet("add", "webdesk icon add [--label L] [--id ID] <application|file|folder> <ref>",
			"Add an icon in the first free grid cell.")
		label := fs.String("label", "", "Caption under the icon")
		id := fs.String("id", "", "Icon id (default derived from kind and ref)")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		if fs.NArg() != 2 {
			fmt.Fprintln(os.Stderr, "icon add requires <kind> <ref>")
			fs.Usage()
			return 2
		}
		kind, ok := icons.ParseKind(fs.Arg(0))
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown icon kind %q\n", fs.Arg(0))
			return 2
		}
		iconID := *id
		if iconID == "" {
			iconID = icons.IconID(kind, fs.Arg(1))
		}
		res, err := client.AddIcon(kind, fs.Arg(1), *label, iconID)
		return reportIcon(iconID, res, err)

	case "remove":
		fs := newFlagSet("remove", "webdesk icon remove <id>", "Remove an icon and forget its saved position.")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "icon remove requires <id>")
			return 2
		}
		res, err := client.RemoveIcon(fs.Arg(0))
		return reportIcon(fs.Arg(0), res, err)

	case "move":
		fs := newFlagSet("move", "webdesk icon move <id> <x> <y>",
			"Drop an icon at x,y. It snaps to the nearest free cell and the position is saved.")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		if fs.NArg() != 3 {
			fmt.Fprintln(os.Stderr, "icon move requires <id> <x> <y>")
			return 2
		}
		xy, err := parseCoords(fs.Args()[1:])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		res, err := client.MoveIcon(fs.Arg(0), xy[0], xy[1])
		return reportIcon(fs.Arg(0), res, err)

	case "drag":
		fs := newFlagSet("drag", "webdesk icon drag [--steps N] <id> <from-x> <from-y> <to-x> <to-y>",
			"Send a pointer down, moves and up to the drag controller, as a browser would.")
		steps := fs.Int("steps", 5, "Number of intermediate pointer moves")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		if fs.NArg() != 5 {
			fmt.Fprintln(os.Stderr, "icon drag requires <id> <from-x> <from-y> <to-x> <to-y>")
			return 2
		}
		c, err := parseCoords(fs.Args()[1:])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		return replayDrag(client, fs.Arg(0), c[0], c[1], c[2], c[3], max(*steps, 1))

	case "click":
		fs := newFlagSet("click", "webdesk icon click <id>",
			"Report whether a click on the icon would open it. Clicks right after a drag are suppressed.")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "icon click requires <id>")
			return 2
		}
		ok, err := client.ClickIcon(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if ok {
			fmt.Println("honoured")
		} else {
			fmt.Println("suppressed")
		}
		return 0

	case "arrange":
		fs := newFlagSet("arrange", "webdesk icon arrange", "Lay every icon out in its default slot, in order.")
		if code, done := parseFlags(fs, args[1:]); done {
			return code
		}
		data, err := client.ArrangeIcons()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		for _, ic := range data.Icons {
			printIcon(ic)
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown icon command: %s\n\n", args[0])
		printIconUsage(os.Stderr)
		return 2
	}
}

func replayDrag(client *ipc.Client, id string, fromX, fromY, toX, toY float64, steps int) int {
	down, err := client.Pointer(ipc.PointerPayload{Phase: ipc.PointerDown, ID: id, X: fromX, Y: fromY})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !down.Accepted {
		fmt.Fprintf(os.Stderr, "drag of %q not accepted\n", id)
		return 1
	}

	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		_, err := client.Pointer(ipc.PointerPayload{
			Phase: ipc.PointerMove,
			X:     fromX + (toX-fromX)*t,
			Y:     fromY + (toY-fromY)*t,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		time.Sleep(10 * time.Millisecond)
	}

	up, err := client.Pointer(ipc.PointerPayload{Phase: ipc.PointerUp, X: toX, Y: toY})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !up.Dropped || up.Position == nil {
		fmt.Println("no drag: movement stayed under the threshold")
		return 0
	}
	fmt.Printf("%s dropped at %g,%g\n", id, up.Position.X, up.Position.Y)
	return 0
}

func runViewport(args []string) int {
	if len(args) == 0 || isHelp(args[0]) {
		fmt.Fprintln(os.Stderr, "Usage: webdesk viewport set <width> <height>")
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	if args[0] != "set" {
		fmt.Fprintf(os.Stderr, "Unknown viewport command: %s\n", args[0])
		return 2
	}

	fs := newFlagSet("set", "webdesk viewport set <width> <height>",
		"Report a new viewport size to a daemon with a static viewport source.")
	if code, done := parseFlags(fs, args[1:]); done {
		return code
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "viewport set requires <width> <height>")
		return 2
	}
	wh, err := parseCoords(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	changed, err := ipc.NewClient().SetViewport(wh[0], wh[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if changed {
		fmt.Printf("viewport: %gx%g\n", wh[0], wh[1])
	} else {
		fmt.Println("viewport: unchanged")
	}
	return 0
}
