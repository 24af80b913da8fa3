// Package server exposes the HTTP surface: fire-and-forget enrichment
// intake and the synchronous map query endpoints.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/imsight/visitlog/internal/enrich"
	"github.com/imsight/visitlog/internal/property"
)

// National coverage box for prefetch requests. Coordinates outside it are
// rejected before they reach the queue.
const (
	minPrefetchLat = 33.0
	maxPrefetchLat = 39.0
	minPrefetchLng = 124.0
	maxPrefetchLng = 132.0
)

// Enqueuer accepts background enrichment jobs.
type Enqueuer interface {
	SubmitPrefetch(lat, lng float64) (uuid.UUID, error)
	SubmitProperty(propertyID uuid.UUID) (uuid.UUID, error)
}

// MapQueries answers the synchronous read path.
type MapQueries interface {
	QueryMarkers(ctx context.Context, ownerID uuid.UUID, vp property.Viewport) ([]property.Marker, error)
	SummaryCard(ctx context.Context, ownerID, propertyID uuid.UUID) (*property.SummaryCard, error)
	LocationDetail(ctx context.Context, ownerID, propertyID uuid.UUID) (*property.LocationDetail, error)
}

// Server wires the handlers onto a mux.
type Server struct {
	queue   Enqueuer
	queries MapQueries
}

func New(queue Enqueuer, queries MapQueries) *Server {
	return &Server{queue: queue, queries: queries}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /api/locations/prefetch", s.handlePrefetch)
	mux.HandleFunc("POST /api/properties/{id}/enrich", s.handleEnrich)
	mux.HandleFunc("GET /api/properties/map/markers", s.handleMarkers)
	mux.HandleFunc("GET /api/properties/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/properties/{id}/location", s.handleLocation)
	return mux
}

type prefetchRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	var req prefetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !(req.Lat >= minPrefetchLat && req.Lat <= maxPrefetchLat &&
		req.Lng >= minPrefetchLng && req.Lng <= maxPrefetchLng) {
		writeError(w, http.StatusBadRequest, "coordinates outside service area")
		return
	}

	jobID, err := s.queue.SubmitPrefetch(req.Lat, req.Lng)
	if err != nil {
		if eris.Is(err, enrich.ErrQueueFull) || eris.Is(err, enrich.ErrPoolClosed) {
			writeError(w, http.StatusServiceUnavailable, "enrichment unavailable")
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID.String()})
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	jobID, err := s.queue.SubmitProperty(id)
	if err != nil {
		if eris.Is(err, enrich.ErrQueueFull) || eris.Is(err, enrich.ErrPoolClosed) {
			writeError(w, http.StatusServiceUnavailable, "enrichment unavailable")
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID.String()})
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	vp := property.Viewport{}
	fields := []struct {
		name string
		dst  *float64
		min  float64
		max  float64
	}{
		{"neLat", &vp.NELat, -90, 90},
		{"neLng", &vp.NELng, -180, 180},
		{"swLat", &vp.SWLat, -90, 90},
		{"swLng", &vp.SWLng, -180, 180},
	}
	for _, f := range fields {
		// ParseFloat accepts "NaN" and "Inf"; the positive-form range
		// check rejects both.
		v, err := strconv.ParseFloat(q.Get(f.name), 64)
		if err != nil || !(v >= f.min && v <= f.max) {
			writeError(w, http.StatusBadRequest, "invalid "+f.name)
			return
		}
		*f.dst = v
	}
	zoom, err := strconv.Atoi(q.Get("zoom"))
	if err != nil || zoom < 1 || zoom > 21 {
		writeError(w, http.StatusBadRequest, "invalid zoom")
		return
	}
	vp.Zoom = zoom

	markers, err := s.queries.QueryMarkers(r.Context(), owner, vp)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if markers == nil {
		markers = []property.Marker{}
	}
	writeJSON(w, http.StatusOK, markers)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	card, err := s.queries.SummaryCard(r.Context(), owner, id)
	if err != nil {
		s.queryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}

	detail, err := s.queries.LocationDetail(r.Context(), owner, id)
	if err != nil {
		s.queryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// queryError maps the read-path error taxonomy onto HTTP statuses.
func (s *Server) queryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case eris.Is(err, property.ErrPropertyNotFound):
		writeError(w, http.StatusNotFound, "property not found")
	case eris.Is(err, property.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access denied")
	default:
		s.internalError(w, r, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// ownerID reads the authenticated user from the X-User-ID header. Auth
// itself happens upstream; an absent or malformed header is a 401 here.
func ownerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid X-User-ID header")
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid property id")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
