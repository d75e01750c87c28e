package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteWait = 5 * time.Second
	maxFrameSize     = 64 * 1024
)

// WebSocketServer accepts game server connections over websocket
type WebSocketServer struct {
	addr      string
	path      string
	writeWait time.Duration
	handler   *Handler
	hub       *Hub
	logger    *zap.Logger
	upgrader  websocket.Upgrader

	server   *http.Server
	listener net.Listener
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewWebSocketServer creates a new websocket transport
func NewWebSocketServer(addr, path string, writeWait time.Duration, handler *Handler, hub *Hub, logger *zap.Logger) *WebSocketServer {
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	if path == "" {
		path = "/events"
	}
	return &WebSocketServer{
		addr:      addr,
		path:      path,
		writeWait: writeWait,
		handler:   handler,
		hub:       hub,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		done: make(chan struct{}),
	}
}

// Handler returns the http handler serving the websocket endpoint
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.serveWS)
	return mux
}

// Start listens on the configured address
func (s *WebSocketServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Websocket transport listening", zap.String("address", ln.Addr().String()), zap.String("path", s.path))
	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Websocket transport failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the listening address once started
func (s *WebSocketServer) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Done is closed once the server stopped serving
func (s *WebSocketServer) Done() <-chan struct{} {
	return s.done
}

// Stop closes every connection and waits for their handlers
func (s *WebSocketServer) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.hub.CloseAll()
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to shut down websocket transport: %w", err)
	}
	return nil
}

// wsPeer serializes writes to one connection
type wsPeer struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	writeWait time.Duration
}

func (p *wsPeer) write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.conn.SetWriteDeadline(time.Now().Add(p.writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *wsPeer) close() {
	p.conn.Close()
}

func (s *WebSocketServer) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	conn.SetReadLimit(maxFrameSize)

	s.wg.Add(1)
	defer s.wg.Done()

	p := &wsPeer{conn: conn, writeWait: s.writeWait}
	id := s.hub.subscribe(p)
	defer s.hub.unsubscribe(id)

	s.logger.Info("Game server connected", zap.String("remote", r.RemoteAddr), zap.Uint64("peer", id))

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Game server connection lost", zap.Uint64("peer", id), zap.Error(err))
			} else {
				s.logger.Info("Game server disconnected", zap.Uint64("peer", id))
			}
			return
		}

		reply := s.handler.HandleBytes(r.Context(), payload)
		if err := p.write(reply); err != nil {
			s.logger.Warn("Failed to write reply", zap.Uint64("peer", id), zap.Error(err))
			return
		}
	}
}
