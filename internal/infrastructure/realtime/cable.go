package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/stockitup/backend/internal/infrastructure/config"
)

// Frame types sent to clients
const (
	FrameWelcome              = "welcome"
	FramePing                 = "ping"
	FrameConfirmSubscription  = "confirm_subscription"
	FrameRejectSubscription   = "reject_subscription"
	commandSubscribe          = "subscribe"
	commandUnsubscribe        = "unsubscribe"
	defaultWriteTimeout       = 10 * time.Second
	maxSubscriptionsPerClient = 8
)

// Frame is a server to client message
type Frame struct {
	Type       string `json:"type,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Message    any    `json:"message,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Command is a client to server message
type Command struct {
	Command    string `json:"command"`
	Identifier string `json:"identifier"`
}

type identifier struct {
	Channel string `json:"channel"`
}

// OriginChecker reports whether a browser origin may open a socket
type OriginChecker func(origin *url.URL, r *http.Request) bool

// CableServer serves the /cable/ socket: clients subscribe to streams of the channel layer
type CableServer struct {
	layer         Layer
	logger        *zap.Logger
	heartbeat     time.Duration
	checkOrigin   OriginChecker
	writeDeadline time.Duration
}

// CableOption configures a CableServer
type CableOption func(*CableServer)

// WithHeartbeat sets the ping interval
func WithHeartbeat(d time.Duration) CableOption {
	return func(s *CableServer) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// WithOriginChecker restricts which origins may connect
func WithOriginChecker(fn OriginChecker) CableOption {
	return func(s *CableServer) {
		s.checkOrigin = fn
	}
}

// NewCableServer creates the socket server
func NewCableServer(layer Layer, logger *zap.Logger, opts ...CableOption) *CableServer {
	s := &CableServer{
		layer:         layer,
		logger:        logger.Named("cable"),
		heartbeat:     config.WebSocketHeartbeatInterval,
		writeDeadline: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP upgrades the request and runs the connection until it closes
func (s *CableServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Server{
		Handshake: s.handshake,
		Handler:   s.serve,
	}.ServeHTTP(w, r)
}

func (s *CableServer) handshake(cfg *websocket.Config, r *http.Request) error {
	if cfg.Origin == nil || s.checkOrigin == nil {
		return nil
	}
	if !s.checkOrigin(cfg.Origin, r) {
		return errors.New("origin not allowed")
	}
	return nil
}

// cableConn is one client connection
type cableConn struct {
	server *CableServer
	ws     *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
	mu      sync.Mutex
	subs    map[string]func()
}

func (s *CableServer) serve(ws *websocket.Conn) {
	ctx, cancel := context.WithCancel(ws.Request().Context())
	defer cancel()

	c := &cableConn{
		server: s,
		ws:     ws,
		logger: s.logger.With(zap.String("remote", ws.Request().RemoteAddr)),
		subs:   make(map[string]func()),
	}
	defer c.close()

	if err := c.send(Frame{Type: FrameWelcome}); err != nil {
		return
	}
	c.logger.Debug("client connected")

	go c.heartbeat(ctx)
	c.readLoop(ctx)
}

func (c *cableConn) send(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.server.writeDeadline))
	return websocket.JSON.Send(c.ws, f)
}

func (c *cableConn) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(c.server.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := c.send(Frame{Type: FramePing, Message: now.Unix()}); err != nil {
				_ = c.ws.Close()
				return
			}
		}
	}
}

func (c *cableConn) readLoop(ctx context.Context) {
	for {
		var cmd Command
		if err := websocket.JSON.Receive(c.ws, &cmd); err != nil {
			if !errors.Is(err, io.EOF) {
				var syntaxErr *json.SyntaxError
				var typeErr *json.UnmarshalTypeError
				if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
					c.logger.Debug("ignoring malformed frame", zap.Error(err))
					continue
				}
				c.logger.Debug("client read failed", zap.Error(err))
			}
			return
		}
		switch cmd.Command {
		case commandSubscribe:
			c.subscribe(ctx, cmd.Identifier)
		case commandUnsubscribe:
			c.unsubscribe(cmd.Identifier)
		default:
			c.logger.Debug("ignoring unknown command", zap.String("command", cmd.Command))
		}
	}
}

func (c *cableConn) subscribe(ctx context.Context, rawIdentifier string) {
	var id identifier
	if err := json.Unmarshal([]byte(rawIdentifier), &id); err != nil {
		_ = c.send(Frame{Type: FrameRejectSubscription, Identifier: rawIdentifier})
		return
	}
	stream, ok := NormalizeStream(id.Channel)
	if !ok {
		_ = c.send(Frame{Type: FrameRejectSubscription, Identifier: rawIdentifier})
		return
	}

	c.mu.Lock()
	if _, exists := c.subs[rawIdentifier]; exists || len(c.subs) >= maxSubscriptionsPerClient {
		c.mu.Unlock()
		if exists {
			_ = c.send(Frame{Type: FrameConfirmSubscription, Identifier: rawIdentifier})
		} else {
			_ = c.send(Frame{Type: FrameRejectSubscription, Identifier: rawIdentifier})
		}
		return
	}
	messages, cancel, err := c.server.layer.Subscribe(ctx, stream)
	if err != nil {
		c.mu.Unlock()
		c.logger.Error("channel layer subscribe failed", zap.String("stream", stream), zap.Error(err))
		_ = c.send(Frame{Type: FrameRejectSubscription, Identifier: rawIdentifier})
		return
	}
	c.subs[rawIdentifier] = cancel
	c.mu.Unlock()

	if err := c.send(Frame{Type: FrameConfirmSubscription, Identifier: rawIdentifier}); err != nil {
		return
	}
	go c.forward(rawIdentifier, messages)
}

func (c *cableConn) forward(rawIdentifier string, messages <-chan []byte) {
	for msg := range messages {
		if err := c.send(Frame{Identifier: rawIdentifier, Message: json.RawMessage(msg)}); err != nil {
			_ = c.ws.Close()
			return
		}
	}
}

func (c *cableConn) unsubscribe(rawIdentifier string) {
	c.mu.Lock()
	cancel, ok := c.subs[rawIdentifier]
	delete(c.subs, rawIdentifier)
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *cableConn) close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = map[string]func(){}
	c.mu.Unlock()
	for _, cancel := range subs {
		cancel()
	}
	_ = c.ws.Close()
	c.logger.Debug("client disconnected")
}
