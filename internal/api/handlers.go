package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/menta2k/snapcrop/pkg/history"
	"github.com/menta2k/snapcrop/pkg/projector"
	"github.com/menta2k/snapcrop/pkg/types"
)

// Size is a width and height pair
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type GeometryRequest struct {
	Container Size `json:"container"`
	Image     Size `json:"image"`
}

type GeometryResponse struct {
	Scale     float64    `json:"scale"`
	OffsetX   float64    `json:"offset_x"`
	OffsetY   float64    `json:"offset_y"`
	Displayed types.Rect `json:"displayed"`
}

// ProjectRequest carries a view-space selection. Displayed may be given
// directly; otherwise it is computed from Container and Image.
type ProjectRequest struct {
	Selection types.Rect  `json:"selection"`
	Displayed *types.Rect `json:"displayed,omitempty"`
	Container Size        `json:"container"`
	Image     struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"image"`
}

// PixelRect is an integer rectangle in source pixels, right and bottom exclusive
type PixelRect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

type ProjectResponse struct {
	Pixels     PixelRect `json:"pixels"`
	Normalized types.Box `json:"normalized"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// GeometryHandler returns where an image lands inside a container
func (s *Server) GeometryHandler(w http.ResponseWriter, r *http.Request) {
	var req GeometryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g := projector.ComputeDisplayGeometry(req.Container.Width, req.Container.Height, req.Image.Width, req.Image.Height)
	writeJSON(w, http.StatusOK, GeometryResponse{
		Scale:     g.Scale,
		OffsetX:   g.OffsetX,
		OffsetY:   g.OffsetY,
		Displayed: g.Rect(),
	})
}

// ProjectHandler maps a selection to source pixels. Projection failures
// are reported as 422 with the failure kind.
func (s *Server) ProjectHandler(w http.ResponseWriter, r *http.Request) {
	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	displayed := projector.ComputeDisplayGeometry(
		req.Container.Width, req.Container.Height,
		float64(req.Image.Width), float64(req.Image.Height),
	).Rect()
	if req.Displayed != nil {
		displayed = *req.Displayed
	}

	rect, err := projector.Project(req.Selection, displayed, req.Image.Width, req.Image.Height)
	if err != nil {
		var perr *projector.ProjectionError
		if errors.As(err, &perr) {
			s.logger.Debug("projection rejected", "kind", perr.Kind.String(), "selection", req.Selection)
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: perr.Kind.String()})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sel := req.Selection.Canon()
	writeJSON(w, http.StatusOK, ProjectResponse{
		Pixels:     PixelRect{Left: rect.Min.X, Top: rect.Min.Y, Right: rect.Max.X, Bottom: rect.Max.Y},
		Normalized: projector.Normalize(projector.Clamp(sel, displayed), displayed),
	})
}

// ListHistoryHandler returns history entries, newest first
func (s *Server) ListHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history disabled")
		return
	}
	items, err := s.history.List()
	if err != nil {
		s.logger.Error("list history", "error", err)
		writeError(w, http.StatusInternalServerError, "could not read history")
		return
	}
	if items == nil {
		items = []types.HistoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetHistoryHandler returns one history entry by ID
func (s *Server) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history disabled")
		return
	}
	id := mux.Vars(r)["id"]
	item, err := s.history.Get(id)
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "history item not found")
		return
	}
	if err != nil {
		s.logger.Error("get history", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not read history")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ClearHistoryHandler removes all history entries and their images
func (s *Server) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history disabled")
		return
	}
	if err := s.history.Clear(); err != nil {
		s.logger.Error("clear history", "error", err)
		writeError(w, http.StatusInternalServerError, "could not clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
