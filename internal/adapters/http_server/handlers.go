package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_insights/internal/app"
	"review_insights/internal/domain"
)

type Handlers struct {
	Q   *app.QueryService
	Ing *app.IngestionService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/readyz", h.ready)
	s.mux.Get("/v1/stats", h.getStats)
	s.mux.Get("/v1/reviews", h.listReviews)
	s.mux.Post("/v1/reviews", h.submitReview)
	s.mux.Get("/v1/reviews/{id}", h.getReview)
	s.mux.Post("/v1/refresh", h.refresh)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v with a weak ETag, or 304 when the client already has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

func (h *Handlers) ready(w http.ResponseWriter, r *http.Request) {
	st := h.Ing.Status()
	resp := struct {
		Status string `json:"status"`
		app.IngestStatus
	}{Status: "healthy", IngestStatus: st}
	code := http.StatusOK
	if !st.Ready() {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (h *Handlers) getStats(w http.ResponseWriter, r *http.Request) {
	writeCached(w, r, h.Q.Stats())
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 1000 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 1000")
			return
		}
		limit = l
	}
	writeCached(w, r, h.Q.ListReviews(limit))
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Q.GetReview(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "review not found")
		return
	}
	writeCached(w, r, rv)
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	var rv domain.ReviewRecord
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rv); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	rv, err := h.Ing.Submit(r.Context(), rv)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidScore):
			writeProblem(w, http.StatusBadRequest, "Invalid score", err.Error())
			return
		case errors.Is(err, domain.ErrMissingID):
			writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
			return
		}
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Success bool                `json:"success"`
		Data    domain.ReviewRecord `json:"data"`
	}{true, rv})
}

func (h *Handlers) refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.Ing.Refresh(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, domain.ErrSuperseded):
		writeJSON(w, http.StatusConflict, res)
	case errors.Is(err, domain.ErrIngestion):
		writeProblem(w, http.StatusBadGateway, "Ingestion failed", err.Error())
	default:
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", err.Error())
	}
}
