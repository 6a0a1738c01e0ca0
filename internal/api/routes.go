package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		CORS(h.corsOrigins),
		Metrics(h.metrics),
		Logging(h.logger),
	)

	// Preflight: ServeMux отвечает 405 на OPTIONS для маршрутов с методом
	if len(h.corsOrigins) > 0 {
		mux.Handle("OPTIONS /api/v1/", CORS(h.corsOrigins)(http.NotFoundHandler()))
	}

	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, chain(fn))
	}

	// Features
	handle("GET /api/v1/features", h.ListFeatures)
	handle("POST /api/v1/features", h.CreateFeature)
	handle("GET /api/v1/features/{id}", h.GetFeature)
	handle("DELETE /api/v1/features/{id}", h.DeleteFeature)
	handle("GET /api/v1/features/{id}/files", h.ListFeatureFiles)
	handle("POST /api/v1/features/{id}/run", h.RunFeature)
	handle("GET /api/v1/tags", h.ListTags)

	// Environments
	handle("GET /api/v1/environments", h.ListEnvironments)
	handle("POST /api/v1/environments", h.CreateEnvironment)
	handle("DELETE /api/v1/environments/{id}", h.DeleteEnvironment)
	handle("POST /api/v1/environments/{id}/activate", h.ActivateEnvironment)
	handle("PUT /api/v1/environments/{id}/variables/{key}", h.SetVariable)
	handle("DELETE /api/v1/environments/{id}/variables/{key}", h.DeleteVariable)

	// Execution config
	handle("GET /api/v1/config", h.GetConfig)
	handle("PUT /api/v1/config", h.UpdateConfig)

	// Queue
	handle("GET /api/v1/queue", h.GetQueue)
	handle("POST /api/v1/queue", h.EnqueueRuns)
	handle("DELETE /api/v1/queue", h.CancelQueue)

	// Runs
	handle("GET /api/v1/runs", h.ListRuns)
	handle("GET /api/v1/runs/{id}", h.GetRun)
	handle("GET /api/v1/runs/{id}/artifacts", h.GetArtifacts)
	handle("GET /api/v1/runs/{id}/artifacts/download", h.DownloadArtifacts)

	// Logs
	handle("GET /api/v1/logs", h.GetLogs)
	handle("GET /api/v1/logs/ws", h.StreamLogs)

	// Command
	handle("POST /api/v1/command", h.HandleCommand)

	// Backend
	handle("GET /api/v1/backend/health", h.BackendHealth)
	handle("GET /api/v1/backend/containers/{name}/logs", h.ContainerLogs)

	// Schedules
	if h.scheduler != nil {
		handle("GET /api/v1/schedules", h.ListSchedules)
		handle("POST /api/v1/schedules", h.CreateSchedule)
		handle("GET /api/v1/schedules/{id}", h.GetSchedule)
		handle("DELETE /api/v1/schedules/{id}", h.DeleteSchedule)
		handle("PUT /api/v1/schedules/{id}/enabled", h.SetScheduleEnabled)
	}

	// Archive
	if h.records != nil {
		handle("GET /api/v1/archive/runs", h.ListArchivedRuns)
	}
}
