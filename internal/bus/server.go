// Package bus exposes the submit queue over a WebSocket so other local
// programs (hotkey daemons, editor plugins, phones on the LAN) can send
// requests and receive every reply.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/deskmate/internal/engine"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Frame kinds.
const (
	KindCommand = "command"
	KindReply   = "reply"
	KindNotice  = "notice"
	KindPing    = "ping"
	KindPong    = "pong"
	KindError   = "error"
)

// Frame is one JSON message on the socket.
type Frame struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	ID      string `json:"id,omitempty"`
	Source  string `json:"source,omitempty"`
	Action  string `json:"action,omitempty"`
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ReplyFrame converts an engine reply to its wire form.
func ReplyFrame(r engine.Reply) Frame {
	ok := r.Result.Success
	return Frame{
		Type:    KindReply,
		ID:      r.ID,
		Source:  string(r.Source),
		Text:    r.Text,
		Action:  r.Action(),
		Success: &ok,
		Message: r.Result.Message,
		Code:    r.Result.GeneratedCode,
	}
}

// Submitter accepts requests for the engine's queue.
type Submitter interface {
	Submit(ctx context.Context, source engine.Source, text string) error
}

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
	sendBuffer  = 32
	maxFrameLen = 64 << 10
)

// Option configures the server.
type Option func(*Server)

// WithAllowedOrigins accepts browser connections from these origins in
// addition to same-host ones. "*" accepts any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = append(s.origins, origins...) }
}

// Server is the WebSocket endpoint.
type Server struct {
	addr     string
	submit   Submitter
	log      *logger.Logger
	origins  []string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	ctx     context.Context
}

// New creates a server that will listen on addr.
func New(addr string, submit Submitter, log *logger.Logger, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		submit:  submit,
		log:     log,
		clients: make(map[*client]struct{}),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the HTTP handler serving /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then closes every
// client and returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("bus: listening on ws://%s/ws", s.addr)

	select {
	case err := <-errCh:
		return fmt.Errorf("bus: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("bus: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("bus: %w", err)
	}
	return nil
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast sends a reply to every client. Slow clients whose buffer is
// full miss the frame.
func (s *Server) Broadcast(r engine.Reply) {
	s.broadcast(ReplyFrame(r))
}

// Notify broadcasts an out-of-band message such as a due reminder.
func (s *Server) Notify(_ context.Context, message string) error {
	s.broadcast(Frame{Type: KindNotice, Text: message})
	return nil
}

// NotifyUrgent is Notify; clients decide how loud a notice is.
func (s *Server) NotifyUrgent(ctx context.Context, message string) error {
	return s.Notify(ctx, message)
}

func (s *Server) broadcast(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		s.log.Error("bus: encoding %s frame: %v", f.Type, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.log.Warn("bus: client %s is slow, dropped %s frame", c.remote, f.Type)
		}
	}
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.closeLocked()
		delete(s.clients, c)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	host := strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	return strings.EqualFold(host, r.Host)
}

// ── Clients ─────────────────────────────────────────────────────

type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
	closed bool
}

func (c *client) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("bus: upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(maxFrameLen)

	c := &client{conn: conn, remote: r.RemoteAddr, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	ctx := s.ctx
	s.mu.Unlock()
	s.log.Info("bus: client %s connected", c.remote)

	go s.writeLoop(c)
	s.readLoop(ctx, c)
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		c.closeLocked()
	}
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	defer func() {
		s.drop(c)
		s.log.Info("bus: client %s disconnected", c.remote)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("bus: read from %s: %v", c.remote, err)
			}
			return
		}
		s.handle(ctx, c, data)
	}
}

func (s *Server) handle(ctx context.Context, c *client, data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		s.reply(c, Frame{Type: KindError, Message: "invalid JSON frame"})
		return
	}

	switch f.Type {
	case KindCommand:
		text := strings.TrimSpace(f.Text)
		if text == "" {
			s.reply(c, Frame{Type: KindError, Message: "command text is empty"})
			return
		}
		s.log.Debug("bus: %s submitted %q", c.remote, text)
		if err := s.submit.Submit(ctx, engine.SourceBus, text); err != nil {
			s.reply(c, Frame{Type: KindError, Message: err.Error()})
		}
	case KindPing:
		s.reply(c, Frame{Type: KindPong})
	default:
		s.reply(c, Frame{Type: KindError, Message: fmt.Sprintf("unknown frame type %q", f.Type)})
	}
}

func (s *Server) reply(c *client, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Debug("bus: write to %s: %v", c.remote, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
