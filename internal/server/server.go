// Package server exposes a workspace of layers over HTTP.
package server

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tingold/geolayer"
	"github.com/tingold/geolayer/internal/config"
)

// Server holds the workspace shared by all handlers.
type Server struct {
	mu        sync.Mutex
	workspace *geolayer.Workspace
	writers   []geolayer.Writer
	cfg       *config.Config
	static    http.Handler
}

// New creates a server with an empty workspace. Files under staticDir are
// served for paths outside /api when staticDir is not empty.
func New(cfg *config.Config, staticDir string) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	delimiter, err := config.Delimiter(cfg.Export.Delimiter)
	if err != nil {
		return nil, err
	}

	s := &Server{
		workspace: geolayer.NewWorkspace(&geolayer.WorkspaceOptions{
			Logger: log.Logger,
			Styles: &cfg.Styles,
		}),
		writers: geolayer.Writers(cfg.Export.Indent, delimiter),
		cfg:     cfg,
	}
	if staticDir != "" {
		s.static = http.FileServer(http.Dir(staticDir))
	}
	return s, nil
}

// Import creates a layer from raw text and adds it to the workspace.
func (s *Server) Import(name, raw string) (*geolayer.Layer, error) {
	opts := geolayer.DefaultImportOptions()
	opts.MinColumns = s.cfg.Import.MinColumns
	if s.cfg.Import.Delimiter != "" {
		delimiter, err := config.Delimiter(s.cfg.Import.Delimiter)
		if err != nil {
			return nil, err
		}
		opts.Delimiter = delimiter
	}

	layer, err := geolayer.Import(name, raw, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.workspace.Add(layer); err != nil {
		return nil, err
	}
	return layer, nil
}

// Handler returns the routes wrapped in RequestLogger.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/layers", s.HandleLayers)
	mux.HandleFunc("/api/layers/", s.HandleLayer)
	mux.HandleFunc("/api/writers", s.HandleWriters)
	mux.HandleFunc("/api/selection", s.HandleSelection)
	mux.HandleFunc("/", s.HandleStatic)
	return RequestLogger(mux)
}
