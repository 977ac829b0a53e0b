package view

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/metrics"
)

const (
	panelShow = "show_panel"
	panelHide = "hide_panel"
)

// Dispatcher executes user intents against the cart.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent domain.Intent) error
}

// CatalogRefresher reloads the catalog on demand.
type CatalogRefresher interface {
	LoadCatalog(ctx context.Context) error
}

type Handler struct {
	cart      Dispatcher
	model     *Model
	logger    *slog.Logger
	metrics   *metrics.Metrics
	refresher CatalogRefresher
	page      *template.Template
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func NewHandler(cart Dispatcher, model *Model, logger *slog.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		cart:    cart,
		model:   model,
		logger:  logger,
		metrics: m,
		page:    template.Must(template.New("page").Parse(pageTemplate)),
	}
}

// WithRefresher enables POST /api/catalog/refresh.
func (h *Handler) WithRefresher(r CatalogRefresher) *Handler {
	h.refresher = r
	return h
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observeLatency)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Get("/", h.Page)
	r.Post("/intents", h.FormIntent)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.Products)
		if h.refresher != nil {
			r.Post("/catalog/refresh", h.RefreshCatalog)
		}
		r.Post("/intents", h.JSONIntent)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart)
			r.Delete("/", h.intent(domain.IntentClear))
			r.Post("/panel", h.panel(true))
			r.Delete("/panel", h.panel(false))

			r.Post("/items/{id}", h.intent(domain.IntentAdd))
			r.Delete("/items/{id}", h.intent(domain.IntentRemove))
			r.Post("/items/{id}/increment", h.intent(domain.IntentIncrement))
			r.Post("/items/{id}/decrement", h.intent(domain.IntentDecrement))
		})
	})

	return r
}

func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.Execute(w, h.model.Snapshot()); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page", "error", err)
	}
}

func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.model.Snapshot().Products)
}

func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.model.Snapshot())
}

func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.refresher.LoadCatalog(r.Context()); err != nil {
		respondError(w, http.StatusBadGateway, "catalog_unavailable", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, h.model.Snapshot().Products)
}

// JSONIntent accepts {"type": "...", "id": "..."} bodies.
func (h *Handler) JSONIntent(w http.ResponseWriter, r *http.Request) {
	var intent domain.Intent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&intent); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.apply(r.Context(), intent); err != nil {
		h.handleError(w, r, intent, err)
		return
	}

	respondJSON(w, http.StatusOK, h.model.Snapshot())
}

// FormIntent serves the HTML page forms and redirects back to the page.
func (h *Handler) FormIntent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	intent := domain.Intent{
		Type: domain.IntentType(r.PostForm.Get("type")),
		ID:   r.PostForm.Get("id"),
	}

	if err := h.apply(r.Context(), intent); err != nil {
		status, _ := statusFor(err)
		h.logger.WarnContext(r.Context(), "intent rejected", "type", intent.Type, "product_id", intent.ID, "error", err)
		if status >= http.StatusInternalServerError || status == http.StatusBadRequest {
			http.Error(w, http.StatusText(status), status)
			return
		}
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) intent(t domain.IntentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intent := domain.Intent{Type: t, ID: chi.URLParam(r, "id")}

		if err := h.apply(r.Context(), intent); err != nil {
			h.handleError(w, r, intent, err)
			return
		}

		status := http.StatusOK
		if t == domain.IntentAdd {
			status = http.StatusCreated
		}
		respondJSON(w, status, h.model.Snapshot())
	}
}

func (h *Handler) panel(open bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if open {
			h.model.ShowCartPanel()
		} else {
			h.model.HideCartPanel()
		}
		respondJSON(w, http.StatusOK, h.model.Snapshot())
	}
}

// apply handles panel intents locally and forwards the rest to the cart.
func (h *Handler) apply(ctx context.Context, intent domain.Intent) error {
	switch intent.Type {
	case panelShow:
		h.model.ShowCartPanel()
		return nil
	case panelHide:
		h.model.HideCartPanel()
		return nil
	default:
		return h.cart.Dispatch(ctx, intent)
	}
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, intent domain.Intent, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "intent failed", "type", intent.Type, "product_id", intent.ID, "error", err)
	}
	respondError(w, status, code, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrAlreadyInCart):
		return http.StatusConflict, "already_in_cart"
	case errors.Is(err, domain.ErrCatalogNotReady):
		return http.StatusServiceUnavailable, "catalog_not_ready"
	case errors.Is(err, domain.ErrUnknownIntent):
		return http.StatusBadRequest, "unknown_intent"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *Handler) observeLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		if h.metrics == nil {
			return
		}
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		h.metrics.RequestLatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
