// Package server exposes the broadcast hub over WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cannedoxygen/mainframe/internal/hub"
)

const writeTimeout = 10 * time.Second

type TLSConfig struct {
	Mode     string // "self-signed", "manual", or "" (disabled)
	CertFile string
	KeyFile  string
	CacheDir string
}

type Config struct {
	Host string
	Port int
	TLS  TLSConfig
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	cfg    Config
	hub    *hub.Hub
	logger *slog.Logger
	srv    *http.Server
}

func New(h *hub.Hub, cfg Config, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, hub: h, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	// Method patterns in ServeMux need Go 1.22+; the upgrader rejects
	// non-GET requests itself.
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start begins serving in a background goroutine. Listen errors after
// startup are reported through the returned channel.
func (s *Server) Start() (<-chan error, error) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.srv = &http.Server{Addr: addr, Handler: s.Handler()}

	tlsConf, err := tlsFor(s.cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("tls setup: %w", err)
	}
	s.srv.TLSConfig = tlsConf

	errs := make(chan error, 1)
	go func() {
		var err error
		if tlsConf != nil {
			s.logger.Info("server: listening (tls)", "addr", addr)
			err = s.srv.ListenAndServeTLS("", "")
		} else {
			s.logger.Info("server: listening", "addr", addr)
			err = s.srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	return errs, nil
}

// Shutdown stops accepting connections and closes the listener. Open
// sessions are torn down by the hub when its context ends.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sess := hub.NewSession()
	s.hub.Register(sess)

	// Write pump: drain the session queue onto the socket. A write
	// failure tears the session down; other sessions never notice.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for frame := range sess.Frames() {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.hub.Unregister(sess)
				return
			}
		}
		// Hub dropped the session: release the read loop too.
		conn.Close()
	}()

	// Read loop: viewer commands. Anything unparseable is ignored by
	// the hub, never answered with an error frame.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.hub.Command(sess, raw)
	}
	s.hub.Unregister(sess)
	<-writeDone
}
