package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/catman-audit/internal/config"
	"github.com/kirillkom/catman-audit/internal/core/catalog"
	"github.com/kirillkom/catman-audit/internal/core/domain"
	"github.com/kirillkom/catman-audit/internal/core/ports"
	"github.com/kirillkom/catman-audit/internal/observability/metrics"
)

const maxJSONBodyBytes = 1 << 20

// Services groups the inbound ports served over HTTP.
type Services struct {
	Audits   ports.AuditService
	Wizard   ports.WizardNavigator
	Editor   ports.EvaluationEditor
	Reports  ports.ReportService
	Exporter ports.AuditExporter
	Catalog  *catalog.Catalog
}

type Option func(*Router)

// WithMetrics instruments every request and exposes GET /metrics.
func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(rt *Router) { rt.metrics = m }
}

// WithPhotos serves locally uploaded photos under /photos/.
func WithPhotos(storage ports.ObjectStorage) Option {
	return func(rt *Router) { rt.photos = storage }
}

// WithReadiness adds GET /readyz backed by check.
func WithReadiness(check func(context.Context) error) Option {
	return func(rt *Router) { rt.ready = check }
}

type Router struct {
	cfg      config.Config
	services Services
	metrics  *metrics.HTTPServerMetrics
	photos   ports.ObjectStorage
	ready    func(context.Context) error
}

func NewRouter(cfg config.Config, services Services, options ...Option) *Router {
	rt := &Router{cfg: cfg, services: services}
	for _, option := range options {
		option(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware, accessLogMiddleware)
	if rt.metrics != nil {
		r.Use(func(next http.Handler) http.Handler { return rt.metrics.Middleware("api", next) })
	}
	r.Use(func(next http.Handler) http.Handler {
		return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	})
	r.Use(func(next http.Handler) http.Handler {
		return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	})
	if rt.cfg.APIRequestValidation {
		validator, err := newRequestValidator()
		if err != nil {
			slog.Error("openapi_validation_disabled", "error", err)
		} else {
			r.Use(validator.middleware)
		}
	}

	r.Get("/healthz", rt.healthz)
	if rt.ready != nil {
		r.Get("/readyz", rt.readyz)
	}
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}
	if rt.photos != nil {
		r.Get("/photos/{key}", rt.servePhoto)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/catalog", rt.getCatalog)

		r.Route("/audits", func(r chi.Router) {
			r.Post("/", rt.createAudit)
			r.Get("/", rt.listAudits)
			r.Get("/export.xlsx", rt.exportAudits)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getAudit)
				r.Delete("/", rt.deleteAudit)
				r.Patch("/info", rt.updateInfo)
				r.Patch("/expertise", rt.updateExpertise)

				r.Post("/wizard/next", rt.advance)
				r.Post("/wizard/previous", rt.retreat)
				r.Put("/wizard/step", rt.setStep)

				r.Route("/sections/{category}/criteria/{key}", func(r chi.Router) {
					r.Post("/eval", rt.toggleEvaluation)
					r.Put("/comment", rt.setComment)
					r.Put("/photo", rt.setPhoto)
					r.Delete("/photo", rt.clearPhoto)
					r.Post("/photo/upload", rt.uploadPhoto)
				})
				r.Post("/comments/flush", rt.flushComments)
				r.Put("/golden-rules/{key}", rt.setGoldenRule)

				r.Get("/scorecard", rt.getScorecard)
				r.Get("/report", rt.getReport)
				r.Get("/report.pdf", rt.downloadReport)
				r.Post("/report/send", rt.sendReport)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	if err := rt.ready(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (rt *Router) getCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.services.Catalog)
}

func (rt *Router) servePhoto(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	rc, err := rt.photos.Open(r.Context(), key)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "photo not found"})
		return
	}
	defer rc.Close()

	if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = io.Copy(w, rc)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Invalid("decode request", "body exceeds %d bytes", maxJSONBodyBytes)
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
