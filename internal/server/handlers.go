package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tingold/geolayer"
	"github.com/tingold/geolayer/geometry"
)

const maxUploadSize = 32 << 20

type featureResponse struct {
	ID       string                 `json:"id"`
	Record   map[string]interface{} `json:"record"`
	Geometry string                 `json:"geometry,omitempty"`
}

type moveRequest struct {
	Handle int     `json:"handle"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type selectionRequest struct {
	Layer   string `json:"layer"`
	Feature string `json:"feature"`
	Hover   bool   `json:"hover,omitempty"`
}

type writerInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	MIME      string `json:"mime"`
	Extension string `json:"extension"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, geolayer.ErrLookup):
		status = http.StatusNotFound
	case errors.Is(err, geolayer.ErrEditInProgress):
		status = http.StatusConflict
	case errors.Is(err, geolayer.ErrUnsupportedOperation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, geolayer.ErrFormat),
		errors.Is(err, geolayer.ErrSchema),
		errors.Is(err, geolayer.ErrColumn),
		errors.Is(err, geolayer.ErrTypeCoercion),
		errors.Is(err, geolayer.ErrValidation):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, allow ...string) {
	w.Header().Set("Allow", strings.Join(allow, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadSize)).Decode(v); err != nil {
		return errors.Wrapf(geolayer.ErrValidation, "request body: %v", err)
	}
	return nil
}

// summary must be called with s.mu held.
func (s *Server) summary(id string) (geolayer.Summary, error) {
	for _, sum := range s.workspace.Summaries() {
		if sum.ID == id {
			return sum, nil
		}
	}
	return geolayer.Summary{}, errors.Wrapf(geolayer.ErrLookup, "layer %q", id)
}

// HandleLayers lists the layers on GET and imports the request body as a
// new layer on POST.
func (s *Server) HandleLayers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		summaries := s.workspace.Summaries()
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, summaries)

	case http.MethodPost:
		text, err := geolayer.ReadText(io.LimitReader(r.Body, maxUploadSize))
		if err != nil {
			writeError(w, err)
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "upload"
		}

		layer, err := s.Import(name, text)
		if err != nil {
			writeError(w, err)
			return
		}

		s.mu.Lock()
		sum, err := s.summary(layer.ID())
		s.mu.Unlock()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sum)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// HandleLayer serves everything under /api/layers/{id}.
func (s *Server) HandleLayer(w http.ResponseWriter, r *http.Request) {
	// Path: /api/layers/{id}[/{resource}[/{featureID}[/{action}]]]
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/layers/"), "/"), "/")
	if parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	layer, err := s.workspace.Layer(parts[0])
	if err != nil {
		writeError(w, err)
		return
	}

	switch {
	case len(parts) == 1:
		s.handleLayerRoot(w, r, layer)
	case len(parts) == 2 && parts[1] == "data":
		s.handleData(w, r, layer)
	case len(parts) == 2 && parts[1] == "primitives":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		data, err := layer.Groups().FeatureCollection().MarshalJSON()
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(data)
	case len(parts) == 2 && parts[1] == "table":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, layer.View())
	case len(parts) == 2 && parts[1] == "visibility":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		if err := s.workspace.ToggleVisibility(layer.ID()); err != nil {
			writeError(w, err)
			return
		}
		s.writeSummary(w, layer.ID())
	case len(parts) == 3 && parts[1] == "features":
		s.handleFeature(w, r, layer, parts[2])
	case len(parts) == 4 && parts[1] == "features" && parts[3] == "move":
		s.handleMove(w, r, layer, parts[2])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) writeSummary(w http.ResponseWriter, id string) {
	sum, err := s.summary(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleLayerRoot(w http.ResponseWriter, r *http.Request, layer *geolayer.Layer) {
	switch r.Method {
	case http.MethodGet:
		s.writeSummary(w, layer.ID())
	case http.MethodDelete:
		if err := s.workspace.Remove(layer.ID()); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

// handleData exports the layer with the writer at the "writer" query
// index, the first writer when absent.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request, layer *geolayer.Layer) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	index := 0
	if v := r.URL.Query().Get("writer"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 || i >= len(s.writers) {
			writeError(w, errors.Wrapf(geolayer.ErrValidation, "unknown writer %q", v))
			return
		}
		index = i
	}

	out, err := geolayer.ExportLayer(s.writers[index], layer)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", out.MIME)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	}
	_, _ = w.Write(out.Data)
}

func (s *Server) handleFeature(w http.ResponseWriter, r *http.Request, layer *geolayer.Layer, featureID string) {
	switch r.Method {
	case http.MethodGet:
		s.writeFeature(w, layer, featureID)

	case http.MethodPut:
		var record map[string]interface{}
		if err := decodeBody(r, &record); err != nil {
			writeError(w, err)
			return
		}
		if err := s.workspace.UpdateAttributes(layer.ID(), featureID, record); err != nil {
			writeError(w, err)
			return
		}
		s.writeFeature(w, layer, featureID)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (s *Server) writeFeature(w http.ResponseWriter, layer *geolayer.Layer, featureID string) {
	record, err := layer.Record(featureID)
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := layer.Geometry(featureID)
	if err != nil {
		writeError(w, err)
		return
	}

	res := featureResponse{ID: featureID, Record: record}
	if g != nil {
		if res.Geometry, err = geometry.MarshalWKT(g); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// handleMove moves one vertex handle of a feature and saves the edit.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request, layer *geolayer.Layer, featureID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.workspace.StartEdit(layer.ID(), featureID); err != nil {
		writeError(w, err)
		return
	}
	if err := s.workspace.Edit().MoveHandle(req.Handle, orb.Point{req.X, req.Y}); err != nil {
		s.workspace.StopEdit()
		writeError(w, err)
		return
	}
	if err := s.workspace.SaveEdit(); err != nil {
		writeError(w, err)
		return
	}
	s.writeFeature(w, layer, featureID)
}

// HandleSelection reports the selection on GET, selects or hovers a
// feature on POST and clears the selection on DELETE.
func (s *Server) HandleSelection(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req selectionRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.Hover {
			s.workspace.Hover(req.Feature)
		} else if err := s.workspace.Select(req.Layer, req.Feature); err != nil {
			writeError(w, err)
			return
		}
	case http.MethodDelete:
		s.workspace.ClearSelection()
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
		return
	}

	layerID, featureID := s.workspace.Selection()
	writeJSON(w, http.StatusOK, selectionRequest{Layer: layerID, Feature: featureID})
}

// HandleWriters lists the export writers; the index selects one in
// /api/layers/{id}/data.
func (s *Server) HandleWriters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	infos := make([]writerInfo, len(s.writers))
	for i, wr := range s.writers {
		infos[i] = writerInfo{Index: i, Name: wr.Name(), MIME: wr.MIME(), Extension: wr.Extension()}
	}
	writeJSON(w, http.StatusOK, infos)
}

// HandleStatic serves the client files when a static directory is set.
func (s *Server) HandleStatic(w http.ResponseWriter, r *http.Request) {
	if s.static == nil || strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}
	s.static.ServeHTTP(w, r)
}
