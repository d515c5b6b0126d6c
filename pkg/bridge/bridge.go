package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/requestid"
	"github.com/dmitrymomot/tabloader/pkg/tabs"
)

// Server accepts the extension connection and relays calls over it.
type Server struct {
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu        sync.Mutex
	active    *conn
	pending   map[string]*pendingCall
	handler   tabs.Handler
	onMessage func(ctx context.Context, m Message)
	onConnect func(ctx context.Context)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a server. Zero config fields take their defaults.
func New(cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg.withDefaults(),
		pending: make(map[string]*pendingCall),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.ForComponent(s.log, "bridge")
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Path is where the server expects to be mounted.
func (s *Server) Path() string {
	return s.cfg.Path
}

// SetHandler sets the receiver of tab events.
func (s *Server) SetHandler(h tabs.Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// OnMessage sets the receiver of content script messages.
func (s *Server) OnMessage(fn func(ctx context.Context, m Message)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// OnConnect sets a hook run after every new extension connection.
func (s *Server) OnConnect(fn func(ctx context.Context)) {
	s.mu.Lock()
	s.onConnect = fn
	s.mu.Unlock()
}

// Connected reports whether an extension is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Ping fails with ErrNotConnected when no extension is connected. It is
// meant for readiness checks.
func (s *Server) Ping(context.Context) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	return nil
}

// Close drops the active connection.
func (s *Server) Close() error {
	s.mu.Lock()
	c := s.active
	s.active = nil
	s.mu.Unlock()

	if c != nil {
		c.close()
	}
	return nil
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", logger.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newConn(ws, s.cfg.WriteTimeout)
	defer c.close()

	ws.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
	})
	ws.SetPingHandler(func(data string) error {
		_ = ws.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		return c.control(websocket.PongMessage, []byte(data))
	})

	s.mu.Lock()
	prev := s.active
	s.active = c
	onConnect := s.onConnect
	s.mu.Unlock()

	if prev != nil {
		s.log.Info("extension reconnected, dropping previous connection")
		prev.close()
	}
	s.log.Info("extension connected", slog.String("remote_addr", r.RemoteAddr))
	defer s.detach(c)

	go s.pingLoop(c)
	if onConnect != nil {
		go onConnect(ctx)
	}

	s.readLoop(ctx, c)
}

func (s *Server) detach(c *conn) {
	s.mu.Lock()
	if s.active == c {
		s.active = nil
	}
	s.mu.Unlock()
	s.log.Info("extension disconnected")
}

func (s *Server) readLoop(ctx context.Context, c *conn) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read error", logger.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))

		if mt != websocket.TextMessage {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.log.Warn("invalid JSON envelope", logger.Error(err))
			continue
		}
		if err := env.Validate(); err != nil {
			s.log.Warn("envelope rejected", logger.Error(err), logger.MessageType(env.Type))
			continue
		}
		s.dispatch(ctx, env)
	}
}

func (s *Server) dispatch(ctx context.Context, env Envelope) {
	s.mu.Lock()
	h, onMessage := s.handler, s.onMessage
	s.mu.Unlock()

	ctx = requestid.WithContext(ctx, env.MsgID)
	log := s.log.With(logger.MessageType(env.Type), logger.MessageID(env.MsgID))

	switch env.Type {
	case TypeResult:
		var res Result
		if err := env.Decode(&res); err != nil {
			log.Warn("malformed result", logger.Error(err))
			return
		}
		s.resolve(env.ReplyTo, res)

	case string(tabs.EventCreated):
		var t tabs.Tab
		if err := env.Decode(&t); err != nil {
			log.Warn("malformed tab event", logger.Error(err))
			return
		}
		emit(ctx, h, tabs.Created(t))

	case string(tabs.EventUpdated):
		var sc StatusChange
		if err := env.Decode(&sc); err != nil {
			log.Warn("malformed tab event", logger.Error(err))
			return
		}
		emit(ctx, h, tabs.Updated(sc.TabID, sc.Status))

	case string(tabs.EventActivated), string(tabs.EventRemoved):
		var ref TabRef
		if err := env.Decode(&ref); err != nil {
			log.Warn("malformed tab event", logger.Error(err))
			return
		}
		if env.Type == string(tabs.EventActivated) {
			emit(ctx, h, tabs.Activated(ref.TabID))
		} else {
			emit(ctx, h, tabs.Removed(ref.TabID))
		}

	case TypeMessage:
		var m Message
		if err := env.Decode(&m); err != nil {
			log.Warn("malformed message", logger.Error(err))
			return
		}
		if onMessage != nil {
			go onMessage(ctx, m)
		}

	case TypeHello:
		log.Debug("extension said hello")

	default:
		log.Warn("unknown envelope type")
	}
}

func emit(ctx context.Context, h tabs.Handler, e tabs.Event) {
	if h != nil {
		h.HandleEvent(ctx, e)
	}
}

type pendingCall struct {
	reply chan Result
}

func (s *Server) resolve(id string, res Result) {
	s.mu.Lock()
	pc, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()

	if !ok {
		s.log.Debug("result for unknown call", logger.MessageID(id))
		return
	}
	pc.reply <- res
}

func (s *Server) current() (*conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, ErrNotConnected
	}
	return s.active, nil
}

// call sends a request and waits for its result, decoding the data into out.
func (s *Server) call(ctx context.Context, typ string, payload, out any) error {
	c, err := s.current()
	if err != nil {
		return fmt.Errorf("%s: %w", typ, err)
	}

	env, err := NewEnvelope(typ, payload)
	if err != nil {
		return err
	}

	pc := &pendingCall{reply: make(chan Result, 1)}
	s.mu.Lock()
	s.pending[env.MsgID] = pc
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, env.MsgID)
		s.mu.Unlock()
	}()

	if err := c.send(env); err != nil {
		return fmt.Errorf("%s: %w", typ, errors.Join(ErrNotConnected, err))
	}

	timer := time.NewTimer(s.cfg.CallTimeout)
	defer timer.Stop()

	select {
	case res := <-pc.reply:
		if !res.OK {
			rerr := res.Error
			if rerr == nil {
				rerr = &RemoteError{Code: CodeInternal, Message: "call failed without details"}
			}
			return fmt.Errorf("%s: %w", typ, rerr)
		}
		if out == nil || len(res.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(res.Data, out); err != nil {
			return fmt.Errorf("%s: %w", typ, errors.Join(ErrInvalidEnvelope, err))
		}
		return nil
	case <-c.done:
		return fmt.Errorf("%s: %w", typ, ErrNotConnected)
	case <-timer.C:
		return fmt.Errorf("%s: %w", typ, ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notify sends a frame that is not answered.
func (s *Server) notify(_ context.Context, typ string, payload any) error {
	c, err := s.current()
	if err != nil {
		return fmt.Errorf("%s: %w", typ, err)
	}
	env, err := NewEnvelope(typ, payload)
	if err != nil {
		return err
	}
	if err := c.send(env); err != nil {
		return fmt.Errorf("%s: %w", typ, errors.Join(ErrNotConnected, err))
	}
	return nil
}

func (s *Server) pingLoop(c *conn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.control(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, r.Header.Get("Origin"))
}

type conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	done         chan struct{}
	once         sync.Once
}

func newConn(ws *websocket.Conn, writeTimeout time.Duration) *conn {
	return &conn{ws: ws, writeTimeout: writeTimeout, done: make(chan struct{})}
}

func (c *conn) send(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteJSON(env)
}

func (c *conn) control(mt int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(mt, data, time.Now().Add(c.writeTimeout))
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}
