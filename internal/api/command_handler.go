package api

import (
	"errors"
	"net/http"

	"github.com/shaiso/Stagehand/internal/backend"
	"github.com/shaiso/Stagehand/internal/command"
)

// HandleCommand интерпретирует команду на естественном языке.
// POST /api/v1/command
func (h *Handler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := decodeBody(r, &req, false); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if h.commands == nil {
		Unavailable(w, command.ErrNotConfigured.Error())
		return
	}

	reply, err := h.commands.Handle(r.Context(), req.Text)
	switch {
	case errors.Is(err, command.ErrEmptyCommand):
		BadRequest(w, "text is required")
		return
	case errors.Is(err, command.ErrNotConfigured):
		Unavailable(w, err.Error())
		return
	case err != nil:
		InternalError(w, h.logger, err)
		return
	}

	Success(w, reply)
}

// BackendHealthResponse — состояние сервиса выполнения.
type BackendHealthResponse struct {
	URL             string `json:"url"`
	Status          string `json:"status"`
	Engine          string `json:"engine,omitempty"`
	Mode            string `json:"mode"`
	TestsDir        string `json:"tests_dir,omitempty"`
	InsideContainer bool   `json:"inside_container"`
}

// BackendHealth проверяет сервис выполнения по текущему backend_url.
// GET /api/v1/backend/health
func (h *Handler) BackendHealth(w http.ResponseWriter, r *http.Request) {
	client := h.backendClient()

	health, err := client.Health(r.Context())
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	Success(w, BackendHealthResponse{
		URL:             client.BaseURL(),
		Status:          health.Status,
		Engine:          health.Engine,
		Mode:            health.Mode,
		TestsDir:        health.TestsDir,
		InsideContainer: health.InsideContainer(),
	})
}

// ContainerLogs проксирует поток логов контейнера построчно, до разрыва.
// Имя "default" означает container_name из настроек.
// GET /api/v1/backend/containers/{name}/logs
func (h *Handler) ContainerLogs(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "default" {
		name = h.coordinator.Settings().Get().ContainerName
	}

	stream, err := h.backendClient().ContainerLogs(r.Context(), name)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	err = backend.ReadLines(stream, func(line string) {
		w.Write([]byte(line + "\n"))
		rc.Flush()
	})
	if err != nil && r.Context().Err() == nil {
		h.logger.Warn("container log stream interrupted", "container", name, "error", err)
	}
}

func (h *Handler) backendClient() *backend.Client {
	return backend.New(h.coordinator.Settings().Get().BackendURL, nil)
}
