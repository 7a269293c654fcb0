// Package httpapi exposes the recommender REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	app "github.com/stamp-ai/recommender/internal/app"
	recommenddomain "github.com/stamp-ai/recommender/internal/app/domain/recommend"
	storedomain "github.com/stamp-ai/recommender/internal/app/domain/store"
	"github.com/stamp-ai/recommender/internal/app/metrics"
	"github.com/stamp-ai/recommender/internal/app/services/recommend"
	"github.com/stamp-ai/recommender/internal/app/storage"
	"github.com/stamp-ai/recommender/internal/health"
	"github.com/stamp-ai/recommender/internal/middleware"
	"github.com/stamp-ai/recommender/pkg/logger"
)

const (
	serviceName    = "stamp-recommender"
	serviceVersion = "1.0.0"
)

// Config tunes the HTTP surface.
type Config struct {
	CORSOrigins       []string
	RequestsPerSecond int
	Burst             int
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app     *app.Application
	checker *health.Checker
}

// NewHandler returns the router exposing the REST API with middleware
// applied. The rate limiter joins the application lifecycle, so call this
// before Application.Start.
func NewHandler(application *app.Application, cfg Config, log *logger.Logger) (http.Handler, error) {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{
		app:     application,
		checker: health.NewChecker(serviceName),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/recommendations", h.recommendations).Methods(http.MethodPost)
	api.HandleFunc("/stores", h.listStores).Methods(http.MethodGet)
	api.HandleFunc("/stores", h.createStore).Methods(http.MethodPost)
	api.HandleFunc("/stores/{id}", h.getStore).Methods(http.MethodGet)
	api.HandleFunc("/stores/{id}/events", h.createEvent).Methods(http.MethodPost)
	api.HandleFunc("/stores/{id}/events", h.listEvents).Methods(http.MethodGet)
	api.HandleFunc("/visits", h.recordVisit).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}/similar", h.similarUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/recommendations", h.userRecommendations).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}/visits", h.userVisits).Methods(http.MethodGet)
	api.HandleFunc("/model/stats", h.modelStats).Methods(http.MethodGet)
	api.HandleFunc("/model/train", h.trainModel).Methods(http.MethodPost)

	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(middleware.NewCORSMiddleware(cfg.CORSOrigins).Handler)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.RequestsPerSecond
		}
		limiter := middleware.NewRateLimiter(cfg.RequestsPerSecond, burst, log)
		if err := application.Attach(limiter); err != nil {
			return nil, fmt.Errorf("register rate limiter: %w", err)
		}
		r.Use(limiter.Handler)
	}
	return r, nil
}

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": serviceName,
		"version": serviceVersion,
		"docs":    "/metrics, /healthz, /api/v1",
	})
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.checker.Report())
}

func (h *handler) recommendations(w http.ResponseWriter, r *http.Request) {
	var req recommenddomain.Request
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := h.app.Recommend.Recommend(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) listStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.app.Catalog.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

func (h *handler) createStore(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string  `json:"name"`
		Category    string  `json:"category"`
		Address     string  `json:"address"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		Rating      float64 `json:"rating"`
		ReviewCount int     `json:"review_count"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Catalog.Create(r.Context(), storedomain.Store{
		Name:        payload.Name,
		Category:    payload.Category,
		Address:     payload.Address,
		Latitude:    payload.Latitude,
		Longitude:   payload.Longitude,
		Rating:      payload.Rating,
		ReviewCount: payload.ReviewCount,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// storeDetail augments a catalog entry with its events and, when the caller
// supplies coordinates, the distance and score breakdown.
type storeDetail struct {
	storedomain.Store
	Events     []storedomain.Event       `json:"events"`
	DistanceKM *float64                  `json:"distance_km,omitempty"`
	Score      *recommend.ScoreBreakdown `json:"score,omitempty"`
}

func (h *handler) getStore(w http.ResponseWriter, r *http.Request) {
	st, err := h.app.Catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	events, err := h.app.Catalog.Events(r.Context(), st.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	detail := storeDetail{Store: st, Events: events}

	lat, latOK := queryFloat(r, "latitude")
	lon, lonOK := queryFloat(r, "longitude")
	if latOK && lonOK {
		d := recommend.HaversineKM(lat, lon, st.Latitude, st.Longitude)
		score := recommend.CompositeScore(d, st, events, time.Now().UTC())
		detail.DistanceKM = &d
		detail.Score = &score
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Type          string    `json:"type"`
		Title         string    `json:"title"`
		Description   string    `json:"description"`
		StartAt       time.Time `json:"start_at"`
		EndAt         time.Time `json:"end_at"`
		ExpMultiplier float64   `json:"exp_multiplier"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Catalog.AddEvent(r.Context(), storedomain.Event{
		StoreID:       mux.Vars(r)["id"],
		Type:          storedomain.EventType(payload.Type),
		Title:         payload.Title,
		Description:   payload.Description,
		StartAt:       payload.StartAt,
		EndAt:         payload.EndAt,
		ExpMultiplier: payload.ExpMultiplier,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.app.Catalog.Events(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *handler) recordVisit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID  string `json:"user_id"`
		StoreID string `json:"store_id"`
		Count   int    `json:"count"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	v, err := h.app.Visits.Record(r.Context(), payload.UserID, payload.StoreID, payload.Count)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *handler) similarUsers(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	n := queryInt(r, "n", 5)
	users := h.app.CF.SimilarUsers(r.Context(), userID, n)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"similar": users,
	})
}

func (h *handler) userRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	n := queryInt(r, "n", 10)
	stores := h.app.CF.Recommend(r.Context(), userID, n)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":         userID,
		"recommendations": stores,
	})
}

func (h *handler) userVisits(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	visits, err := h.app.Visits.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"visits":  visits,
	})
}

func (h *handler) modelStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.CF.Stats(r.Context()))
}

func (h *handler) trainModel(w http.ResponseWriter, r *http.Request) {
	if err := h.app.CF.Train(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, h.app.CF.Stats(r.Context()))
}

func queryFloat(r *http.Request, name string) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
