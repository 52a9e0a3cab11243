// Package server streams zip archives of a directory tree over HTTP.
//
// Archives are produced on the fly and never buffered: every chunk the
// archive writer emits goes out as one HTTP chunk or one WebSocket message.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/seatgeek/zip-firehose/blockwrite"
	"github.com/seatgeek/zip-firehose/zipstream"
)

var errNotFound = errors.New("not found")

// Config ...
type Config struct {
	// Root is the directory archives are served from
	Root string
	// Listen address, e.g. ":8080"
	Listen string
	// Level is the deflate level, flate.DefaultCompression (-1) for the default
	Level int
}

// Server ...
type Server struct {
	cfg      Config
	mux      *http.ServeMux
	metrics  *metrics
	upgrader websocket.Upgrader
	logger   *log.Entry
}

// New ...
func New(cfg Config) *Server {
	reg := prometheus.NewRegistry()

	s := &Server{
		cfg:     cfg,
		mux:     http.NewServeMux(),
		metrics: newMetrics(reg),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 32 * 1024,
		},
		logger: log.WithField("component", "server"),
	}

	s.mux.HandleFunc("GET /zip/{path...}", s.serveZip)
	s.mux.HandleFunc("GET /ws/{path...}", s.serveWebsocket)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return s
}

// Handler ...
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("[server] Listening on %s, serving %s", s.cfg.Listen, s.cfg.Root)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("[server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// resolve maps a request path to a manifest of everything below it. Both
// the lexical path and its symlink-resolved target must stay under Root.
func (s *Server) resolve(p string) (*zipstream.Manifest, string, error) {
	root, err := filepath.Abs(s.cfg.Root)
	if err != nil {
		return nil, "", err
	}

	full := filepath.Join(root, filepath.FromSlash(p))
	if !within(root, full) {
		return nil, "", errNotFound
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, "", err
	}
	realFull, err := filepath.EvalSymlinks(full)
	if err != nil || !within(realRoot, realFull) {
		return nil, "", errNotFound
	}

	entries, err := zipstream.EntriesFromPaths(realFull)
	if err != nil {
		return nil, "", err
	}

	return &zipstream.Manifest{Entries: entries}, filepath.Base(full), nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Server) serveZip(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.WithFields(log.Fields{
		"transport": "http",
		"path":      r.PathValue("path"),
		"remote":    r.RemoteAddr,
	})

	m, name, err := s.resolve(r.PathValue("path"))
	if err != nil {
		s.fail(w, logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".zip"))
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	out := blockwrite.New(func(p []byte) error {
		if _, err := w.Write(p); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		s.metrics.observeChunk(len(p))
		return nil
	})

	stats, err := zipstream.Write(r.Context(), out, m,
		zipstream.WithCompressionLevel(s.cfg.Level),
		zipstream.WithLogger(logger),
	)
	s.metrics.observeArchive("http", err)
	if err != nil {
		logger.Errorf("[server] archive aborted: %s", err)
		// drop the connection so the client never sees the final chunk
		panic(http.ErrAbortHandler)
	}

	logger.WithField("entries", stats.Entries).Infof("[server] streamed %s.zip (%d bytes read)", name, stats.Bytes)
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.WithFields(log.Fields{
		"transport": "websocket",
		"path":      r.PathValue("path"),
		"remote":    r.RemoteAddr,
	})

	m, name, err := s.resolve(r.PathValue("path"))
	if err != nil {
		s.fail(w, logger, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("[server] upgrade failed: %s", err)
		return
	}
	defer conn.Close()

	out := blockwrite.New(func(p []byte) error {
		if err := conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
			return err
		}
		s.metrics.observeChunk(len(p))
		return nil
	})

	stats, err := zipstream.Write(r.Context(), out, m,
		zipstream.WithCompressionLevel(s.cfg.Level),
		zipstream.WithLogger(logger),
	)
	s.metrics.observeArchive("websocket", err)

	code, text := websocket.CloseNormalClosure, ""
	if err != nil {
		logger.Errorf("[server] archive aborted: %s", err)
		code, text = websocket.CloseInternalServerErr, "archive aborted"
	} else {
		logger.WithField("entries", stats.Entries).Infof("[server] streamed %s.zip (%d bytes read)", name, stats.Bytes)
	}

	deadline := time.Now().Add(5 * time.Second)
	if err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline); err != nil {
		logger.Debugf("[server] close frame: %s", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, logger *log.Entry, err error) {
	if errors.Is(err, errNotFound) {
		logger.Debug("[server] not found")
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}

	logger.Errorf("[server] %s", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
