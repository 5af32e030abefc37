package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stemd/internal/manager"
	"stemd/pkg/types"
)

// Service defines the methods required by the HTTP API layer. The
// manager implements it; tests substitute a mock.
type Service interface {
	Health(ctx context.Context) types.HealthResponse
	LoadModel(ctx context.Context, name string) (types.ModelActionResponse, error)
	UnloadModel(ctx context.Context, name string) (types.ModelActionResponse, error)
	SubmitSeparation(ctx context.Context, req types.SeparationRequest) (types.SubmitResponse, error)
	Job(ctx context.Context, id string) (types.JobRecord, error)
	CancelJob(ctx context.Context, id string) (types.CancelResponse, error)
	Status(ctx context.Context) types.StatusResponse
}

// defaultStemCount is recorded on submissions that omit stem_count.
const defaultStemCount = 4

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	r.Use(MetricsMiddleware)
	r.Use(requestLogger)

	r.Get("/health", handleHealth(svc))
	r.Post("/models/load/{model}", handleLoadModel(svc))
	r.Post("/models/unload/{model}", handleUnloadModel(svc))
	r.Post("/process/separate", handleSeparate(svc))
	r.Get("/jobs/{jobID}", handleJob(svc))
	r.Post("/jobs/{jobID}/cancel", handleCancel(svc))
	r.Get("/status", handleStatus(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Swagger UI when built with -tags=swagger
	MountSwagger(r)

	return r
}

// handleHealth godoc
// @Summary Liveness and GPU visibility
// @Tags service
// @Produce json
// @Success 200 {object} types.HealthResponse
// @Router /health [get]
func handleHealth(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Health(r.Context()))
	}
}

// handleLoadModel godoc
// @Summary Load a model into memory ahead of the first job
// @Tags models
// @Produce json
// @Param model path string true "Model name" default(demucs)
// @Success 200 {object} types.ModelActionResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /models/load/{model} [post]
func handleLoadModel(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "model")
		// Model loads may outlive the HTTP request inside the engine;
		// join with the server context so shutdown still cancels them.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.LoadModel(ctx, name)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleUnloadModel godoc
// @Summary Unload a model and release its memory
// @Tags models
// @Produce json
// @Param model path string true "Model name" default(demucs)
// @Success 200 {object} types.ModelActionResponse
// @Router /models/unload/{model} [post]
func handleUnloadModel(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := svc.UnloadModel(r.Context(), chi.URLParam(r, "model"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleSeparate godoc
// @Summary Submit an audio file for stem separation
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body types.SeparationRequest true "Separation request"
// @Success 200 {object} types.SubmitResponse
// @Failure 400 {object} types.ErrorResponse
// @Router /process/separate [post]
func handleSeparate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.SeparationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.FilePath = strings.TrimSpace(req.FilePath)
		if req.FilePath == "" {
			writeJSONError(w, http.StatusBadRequest, "file_path is required")
			return
		}
		if req.StemCount < 0 {
			writeJSONError(w, http.StatusBadRequest, "stem_count must be positive")
			return
		}
		if req.StemCount == 0 {
			req.StemCount = defaultStemCount
		}
		resp, err := svc.SubmitSeparation(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleJob godoc
// @Summary Poll a job's status, progress and result
// @Tags jobs
// @Produce json
// @Param jobID path string true "Job id"
// @Success 200 {object} types.JobRecord
// @Failure 404 {object} types.ErrorResponse
// @Router /jobs/{jobID} [get]
func handleJob(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.Job(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// handleCancel godoc
// @Summary Cancel a job (best effort)
// @Tags jobs
// @Produce json
// @Param jobID path string true "Job id"
// @Success 200 {object} types.CancelResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /jobs/{jobID}/cancel [post]
func handleCancel(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := svc.CancelJob(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleStatus godoc
// @Summary Operator snapshot: device, residency, jobs, queue
// @Tags service
// @Produce json
// @Success 200 {object} types.StatusResponse
// @Router /status [get]
func handleStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status(r.Context()))
	}
}

// writeServiceError maps well-known manager errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case manager.IsUnsupportedModel(err), manager.IsJobNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		if he, ok := err.(HTTPError); ok {
			writeJSONError(w, he.StatusCode(), he.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
