package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/webdesk/internal/desktop"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/runtimepath"
	"github.com/1broseidon/webdesk/internal/windows"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for an explicit socket path.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	return conn, nil
}

func writeRequest(conn net.Conn, req *Request) error {
	reqData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

func readResponse(reader *bufio.Reader) (*Response, error) {
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == StatusError {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := writeRequest(conn, req); err != nil {
		return nil, err
	}
	return readResponse(bufio.NewReader(conn))
}

// call sends command with payload and decodes the response data into out
// when out is non-nil.
func (c *Client) call(command CommandType, payload any, out any) error {
	req := &Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", command, err)
	}
	return nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetViewport pushes a viewport size to a daemon running a static oracle.
func (c *Client) SetViewport(width, height float64) (bool, error) {
	var res ViewportResult
	err := c.call(CommandSetViewport, ViewportPayload{Width: width, Height: height}, &res)
	return res.Changed, err
}

// ListWindows returns every open window and the topmost one.
func (c *Client) ListWindows() (*WindowsData, error) {
	var data WindowsData
	if err := c.call(CommandListWindows, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// OpenWindow opens a window. Changed is false when the id is taken.
func (c *Client) OpenWindow(p OpenWindowPayload) (*WindowResult, error) {
	return c.windowCall(CommandOpenWindow, p)
}

func (c *Client) CloseWindow(id string) (*WindowResult, error) {
	return c.windowCall(CommandCloseWindow, WindowIDPayload{ID: id})
}

func (c *Client) MinimizeWindow(id string) (*WindowResult, error) {
	return c.windowCall(CommandMinimizeWindow, WindowIDPayload{ID: id})
}

func (c *Client) MaximizeWindow(id string) (*WindowResult, error) {
	return c.windowCall(CommandMaximizeWindow, WindowIDPayload{ID: id})
}

func (c *Client) RestoreWindow(id string) (*WindowResult, error) {
	return c.windowCall(CommandRestoreWindow, WindowIDPayload{ID: id})
}

func (c *Client) FocusWindow(id string) (*WindowResult, error) {
	return c.windowCall(CommandFocusWindow, WindowIDPayload{ID: id})
}

// SetGeometry merges the set fields of patch into window id.
func (c *Client) SetGeometry(id string, patch windows.GeometryPatch) (*WindowResult, error) {
	return c.windowCall(CommandSetGeometry, SetGeometryPayload{ID: id, GeometryPatch: patch})
}

func (c *Client) SetVisible(id string, visible bool) (*WindowResult, error) {
	return c.windowCall(CommandSetVisible, SetVisiblePayload{ID: id, Visible: visible})
}

// SnapWindow moves a window into a named region such as "left-half".
func (c *Client) SnapWindow(id, region string) (*WindowResult, error) {
	return c.windowCall(CommandSnapWindow, SnapWindowPayload{ID: id, Region: region})
}

func (c *Client) windowCall(command CommandType, payload any) (*WindowResult, error) {
	var res WindowResult
	if err := c.call(command, payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// NormalizeZ compacts the z-order and returns the number of windows
// renumbered.
func (c *Client) NormalizeZ() (int, error) {
	var res CountResult
	err := c.call(CommandNormalizeZ, nil, &res)
	return res.Count, err
}

// TileWindows arranges every on-screen window. A nil gap uses the
// configured one.
func (c *Client) TileWindows(gap *float64) (int, error) {
	var res CountResult
	err := c.call(CommandTileWindows, TileWindowsPayload{Gap: gap}, &res)
	return res.Count, err
}

func (c *Client) ListIcons() (*IconsData, error) {
	var data IconsData
	if err := c.call(CommandListIcons, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// AddIcon places a new icon. An empty id is derived from kind and ref.
func (c *Client) AddIcon(kind icons.Kind, ref, label, id string) (*IconResult, error) {
	return c.iconCall(CommandAddIcon, AddIconPayload{ID: id, Kind: kind, Ref: ref, Label: label})
}

func (c *Client) RemoveIcon(id string) (*IconResult, error) {
	return c.iconCall(CommandRemoveIcon, IconIDPayload{ID: id})
}

// MoveIcon drops an icon at x,y. The daemon snaps it to the grid.
func (c *Client) MoveIcon(id string, x, y float64) (*IconResult, error) {
	return c.iconCall(CommandMoveIcon, MoveIconPayload{ID: id, X: x, Y: y})
}

func (c *Client) iconCall(command CommandType, payload any) (*IconResult, error) {
	var res IconResult
	if err := c.call(command, payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ArrangeIcons lays every icon out in its default slot.
func (c *Client) ArrangeIcons() (*IconsData, error) {
	var data IconsData
	if err := c.call(CommandArrangeIcons, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Pointer forwards one pointer event to the drag controller.
func (c *Client) Pointer(p PointerPayload) (*PointerResult, error) {
	var res PointerResult
	if err := c.call(CommandPointer, p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ClickIcon reports whether a click on id is honoured.
func (c *Client) ClickIcon(id string) (bool, error) {
	var res ClickResult
	err := c.call(CommandClickIcon, IconIDPayload{ID: id}, &res)
	return res.Honoured, err
}

// Subscribe streams desktop events to fn until ctx is cancelled or the
// daemon closes the connection. It returns nil on cancellation.
func (c *Client) Subscribe(ctx context.Context, fn func(desktop.Event)) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if err := writeRequest(conn, &Request{Command: CommandSubscribe}); err != nil {
		return err
	}
	reader := bufio.NewReader(conn)
	if _, err := readResponse(reader); err != nil {
		return err
	}
	conn.SetDeadline(time.Time{})

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("event stream ended: %w", err)
		}
		var ev desktop.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("failed to parse event: %w", err)
		}
		fn(ev)
	}
}
