package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/webdesk/internal/desktop"
	"github.com/1broseidon/webdesk/internal/events"
	"github.com/1broseidon/webdesk/internal/geom"
	"github.com/1broseidon/webdesk/internal/icons"
	"github.com/1broseidon/webdesk/internal/runtimepath"
	"github.com/1broseidon/webdesk/internal/tiling"
	"github.com/1broseidon/webdesk/internal/windows"
)

const (
	requestReadTimeout = 5 * time.Second
	subscriberBuffer   = 256
)

// ServerConfig wires a Server to the running desktop.
type ServerConfig struct {
	// SocketPath defaults to runtimepath.SocketPath().
	SocketPath     string
	Desktop        *desktop.Desktop
	ViewportSource string
	// Reload re-reads the configuration. RELOAD fails when it is nil.
	Reload func() error
	Logger *slog.Logger
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	desktop    *desktop.Desktop
	source     string
	reload     func() error
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Desktop == nil {
		return nil, errors.New("ipc server requires a desktop")
	}
	socketPath := cfg.SocketPath
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: socketPath,
		desktop:    cfg.Desktop,
		source:     cfg.ViewportSource,
		reload:     cfg.Reload,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.conns.Add(1)
	go s.acceptLoop()

	return nil
}

// Serve runs the server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	defer s.conns.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	// Parse request
	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	if req.Command == CommandSubscribe {
		s.handleSubscribe(conn, reader)
		return
	}

	s.writeResponse(conn, s.handleCommand(req))
}

func (s *Server) writeResponse(conn net.Conn, resp *Response) {
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC command", "command", req.Command)

	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandSetViewport:
		return s.handleSetViewport(req.Payload)
	case CommandListWindows:
		return s.handleListWindows()
	case CommandOpenWindow:
		return s.handleOpenWindow(req.Payload)
	case CommandCloseWindow:
		return s.handleWindowOp(req.Payload, (*windows.Registry).Close)
	case CommandMinimizeWindow:
		return s.handleWindowOp(req.Payload, (*windows.Registry).Minimize)
	case CommandMaximizeWindow:
		return s.handleWindowOp(req.Payload, (*windows.Registry).Maximize)
	case CommandRestoreWindow:
		return s.handleWindowOp(req.Payload, (*windows.Registry).Restore)
	case CommandFocusWindow:
		return s.handleWindowOp(req.Payload, (*windows.Registry).BringToFront)
	case CommandSetGeometry:
		return s.handleSetGeometry(req.Payload)
	case CommandSetVisible:
		return s.handleSetVisible(req.Payload)
	case CommandNormalizeZ:
		return s.handleNormalizeZ()
	case CommandTileWindows:
		return s.handleTileWindows(req.Payload)
	case CommandSnapWindow:
		return s.handleSnapWindow(req.Payload)
	case CommandListIcons:
		return s.handleListIcons()
	case CommandAddIcon:
		return s.handleAddIcon(req.Payload)
	case CommandRemoveIcon:
		return s.handleRemoveIcon(req.Payload)
	case CommandArrangeIcons:
		return s.handleArrangeIcons()
	case CommandMoveIcon:
		return s.handleMoveIcon(req.Payload)
	case CommandPointer:
		return s.handlePointer(req.Payload)
	case CommandClickIcon:
		return s.handleClickIcon(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// onLoop runs fn on the desktop loop and wraps its result in a response.
func onLoop[T any](s *Server, fn func() T) *Response {
	data, err := desktop.Query(s.ctx, s.desktop, fn)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Desktop unavailable: %v", err))
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func decodePayload(payload json.RawMessage, out any) error {
	if len(payload) == 0 {
		return errors.New("missing payload")
	}
	return json.Unmarshal(payload, out)
}

// handleReload reloads the configuration
func (s *Server) handleReload() *Response {
	s.logger.Info("IPC: received RELOAD command")
	if s.reload == nil {
		return NewErrorResponse("reload is not supported by this daemon")
	}
	if err := s.reload(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	return onLoop(s, func() StatusData {
		return StatusData{
			Status:         s.desktop.Status(),
			ViewportSource: s.source,
			DaemonRunning:  true,
		}
	})
}

func (s *Server) handleSetViewport(payload json.RawMessage) *Response {
	var req ViewportPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid viewport payload: %v", err))
	}
	changed, err := s.desktop.SetViewport(geom.Size{Width: req.Width, Height: req.Height})
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, _ := NewOKResponse(ViewportResult{Changed: changed})
	return resp
}

func (s *Server) handleListWindows() *Response {
	return onLoop(s, func() WindowsData {
		reg := s.desktop.Windows()
		data := WindowsData{Windows: reg.List()}
		if top, ok := reg.Topmost(); ok {
			data.Topmost = top.ID
		}
		return data
	})
}

// windowResult reports the state of id after an operation. Loop only.
func (s *Server) windowResult(id string, changed bool) WindowResult {
	res := WindowResult{Changed: changed}
	if w, ok := s.desktop.Windows().Get(id); ok {
		res.Window = &w
	}
	return res
}

func (s *Server) handleOpenWindow(payload json.RawMessage) *Response {
	var req OpenWindowPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid open payload: %v", err))
	}
	if req.ID == "" {
		return NewErrorResponse("id is required")
	}
	opts := windows.OpenOptions{
		Title:  req.Title,
		Icon:   req.Icon,
		Width:  req.Width,
		Height: req.Height,
	}
	if len(req.Content) > 0 {
		opts.Content = req.Content
	}
	return onLoop(s, func() WindowResult {
		return s.windowResult(req.ID, s.desktop.Windows().Open(req.ID, opts))
	})
}

// handleWindowOp runs a single-id registry mutator.
func (s *Server) handleWindowOp(payload json.RawMessage, op func(*windows.Registry, string) bool) *Response {
	var req WindowIDPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid window payload: %v", err))
	}
	return onLoop(s, func() WindowResult {
		return s.windowResult(req.ID, op(s.desktop.Windows(), req.ID))
	})
}

func (s *Server) handleSetGeometry(payload json.RawMessage) *Response {
	var req SetGeometryPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid geometry payload: %v", err))
	}
	return onLoop(s, func() WindowResult {
		return s.windowResult(req.ID, s.desktop.Windows().SetGeometry(req.ID, req.GeometryPatch))
	})
}

func (s *Server) handleSetVisible(payload json.RawMessage) *Response {
	var req SetVisiblePayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid visibility payload: %v", err))
	}
	return onLoop(s, func() WindowResult {
		return s.windowResult(req.ID, s.desktop.Windows().SetVisible(req.ID, req.Visible))
	})
}

func (s *Server) handleNormalizeZ() *Response {
	return onLoop(s, func() CountResult {
		return CountResult{Count: s.desktop.Windows().Normalize()}
	})
}

func (s *Server) handleTileWindows(payload json.RawMessage) *Response {
	var req TileWindowsPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid tile payload: %v", err))
		}
	}

	type tileOutcome struct {
		count int
		err   error
	}
	out, err := desktop.Query(s.ctx, s.desktop, func() tileOutcome {
		gap := s.desktop.TileGap()
		if req.Gap != nil {
			gap = *req.Gap
		}
		n, err := s.desktop.Windows().Tile(gap)
		return tileOutcome{count: n, err: err}
	})
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Desktop unavailable: %v", err))
	}
	if out.err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to tile windows: %v", out.err))
	}
	resp, _ := NewOKResponse(CountResult{Count: out.count})
	return resp
}

func (s *Server) handleSnapWindow(payload json.RawMessage) *Response {
	var req SnapWindowPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid snap payload: %v", err))
	}
	region, err := tiling.ParseRegion(req.Region)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return onLoop(s, func() WindowResult {
		return s.windowResult(req.ID, s.desktop.Windows().Snap(req.ID, region))
	})
}

func (s *Server) handleListIcons() *Response {
	return onLoop(s, func() IconsData {
		eng := s.desktop.Icons()
		grid := eng.Grid()
		return IconsData{
			Icons:   eng.Icons(),
			Grid:    grid.Spec,
			Compact: grid.Compact,
		}
	})
}

// iconResult reports the state of id after an operation. Loop only.
func (s *Server) iconResult(id string, changed bool) IconResult {
	res := IconResult{Changed: changed}
	if ic, ok := s.desktop.Icons().Get(id); ok {
		res.Icon = &ic
	}
	return res
}

func (s *Server) handleAddIcon(payload json.RawMessage) *Response {
	var req AddIconPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid icon payload: %v", err))
	}
	if _, ok := icons.ParseKind(string(req.Kind)); !ok {
		return NewErrorResponse(fmt.Sprintf("unknown icon kind %q", req.Kind))
	}
	if req.Ref == "" {
		return NewErrorResponse("ref is required")
	}
	ic := icons.Icon{
		ID:    req.ID,
		Kind:  req.Kind,
		Ref:   req.Ref,
		Label: req.Label,
	}
	if ic.ID == "" {
		ic.ID = icons.IconID(ic.Kind, ic.Ref)
	}
	return onLoop(s, func() IconResult {
		return s.iconResult(ic.ID, s.desktop.Icons().Add(ic))
	})
}

func (s *Server) handleRemoveIcon(payload json.RawMessage) *Response {
	var req IconIDPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid icon payload: %v", err))
	}
	return onLoop(s, func() IconResult {
		return IconResult{Changed: s.desktop.Icons().Remove(req.ID)}
	})
}

func (s *Server) handleArrangeIcons() *Response {
	return onLoop(s, func() IconsData {
		eng := s.desktop.Icons()
		eng.Arrange()
		grid := eng.Grid()
		return IconsData{Icons: eng.Icons(), Grid: grid.Spec, Compact: grid.Compact}
	})
}

// handleMoveIcon drops an icon at a position as if it had been dragged
// there.
func (s *Server) handleMoveIcon(payload json.RawMessage) *Response {
	var req MoveIconPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid move payload: %v", err))
	}
	return onLoop(s, func() IconResult {
		_, ok := s.desktop.Icons().Drop(req.ID, geom.Point{X: req.X, Y: req.Y})
		return s.iconResult(req.ID, ok)
	})
}

func (s *Server) handlePointer(payload json.RawMessage) *Response {
	var req PointerPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid pointer payload: %v", err))
	}
	switch req.Phase {
	case PointerDown, PointerMove, PointerUp:
	default:
		return NewErrorResponse(fmt.Sprintf("unknown pointer phase %q", req.Phase))
	}

	p := geom.Point{X: req.X, Y: req.Y}
	return onLoop(s, func() PointerResult {
		ctl := s.desktop.Drag()
		var res PointerResult
		switch req.Phase {
		case PointerDown:
			res.Accepted = ctl.PointerDown(req.ID, p)
		case PointerMove:
			res.Accepted = ctl.PointerMove(p)
		case PointerUp:
			final, ok := ctl.PointerUp(p)
			res.Accepted = ok
			if ok {
				res.Dropped = true
				res.Position = &final
			}
		}
		res.Dragging = ctl.Dragging()
		return res
	})
}

func (s *Server) handleClickIcon(payload json.RawMessage) *Response {
	var req IconIDPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid click payload: %v", err))
	}
	return onLoop(s, func() ClickResult {
		return ClickResult{Honoured: s.desktop.Drag().Click(req.ID)}
	})
}

// handleSubscribe acknowledges the request and then streams every desktop
// event to conn, one JSON object per line, until the client hangs up or
// the server stops. Events are dropped for a subscriber that falls
// subscriberBuffer events behind.
func (s *Server) handleSubscribe(conn net.Conn, reader *bufio.Reader) {
	feed := make(chan []byte, subscriberBuffer)
	sub, err := desktop.Query(s.ctx, s.desktop, func() events.Subscription {
		return s.desktop.Subscribe(func(e desktop.Event) {
			data, err := json.Marshal(e)
			if err != nil {
				s.logger.Error("failed to marshal event", "error", err)
				return
			}
			select {
			case feed <- data:
			default:
				s.logger.Warn("IPC subscriber is lagging, event dropped", "kind", e.Kind)
			}
		})
	})
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Desktop unavailable: %v", err))
		return
	}
	defer sub.Cancel()

	ack, _ := NewOKResponse(nil)
	s.writeResponse(conn, ack)

	gone := make(chan struct{})
	go func() {
		io.Copy(io.Discard, reader)
		close(gone)
	}()
	defer func() {
		conn.Close()
		<-gone
	}()

	s.logger.Debug("IPC subscriber attached")
	for {
		select {
		case data := <-feed:
			if _, err := conn.Write(append(data, '\n')); err != nil {
				s.logger.Debug("IPC subscriber write failed", "error", err)
				return
			}
		case <-gone:
			s.logger.Debug("IPC subscriber detached")
			return
		case <-s.ctx.Done():
			return
		}
	}
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	s.writeResponse(conn, NewErrorResponse(errMsg))
}

// Stop gracefully shuts down the IPC server and waits for open
// connections to finish.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.conns.Wait()
	os.Remove(s.socketPath)
}
