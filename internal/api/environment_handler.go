package api

import (
	"net/http"
)

// ListEnvironments возвращает все окружения.
// GET /api/v1/environments
func (h *Handler) ListEnvironments(w http.ResponseWriter, r *http.Request) {
	envs := h.envs.List()

	result := make([]EnvironmentResponse, len(envs))
	for i, e := range envs {
		result[i] = EnvironmentFromDomain(e)
	}

	List(w, result, len(result))
}

// CreateEnvironment создаёт окружение. Первое окружение сразу становится активным.
// POST /api/v1/environments
func (h *Handler) CreateEnvironment(w http.ResponseWriter, r *http.Request) {
	var req CreateEnvironmentRequest
	if err := decodeBody(r, &req, false); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	env, err := h.envs.Add(req.Name, req.URL, req.Variables)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	Created(w, EnvironmentFromDomain(env))
}

// DeleteEnvironment удаляет окружение.
// DELETE /api/v1/environments/{id}
func (h *Handler) DeleteEnvironment(w http.ResponseWriter, r *http.Request) {
	if HandleStoreError(w, h.logger, h.envs.Delete(r.PathValue("id")), "environment not found") {
		return
	}

	NoContent(w)
}

// ActivateEnvironment делает окружение активным.
// POST /api/v1/environments/{id}/activate
func (h *Handler) ActivateEnvironment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if HandleStoreError(w, h.logger, h.envs.Activate(id), "environment not found") {
		return
	}

	env, err := h.envs.Get(id)
	if HandleStoreError(w, h.logger, err, "environment not found") {
		return
	}

	h.logger.Info("environment activated", "environment", env.Name)
	Success(w, EnvironmentFromDomain(env))
}

// SetVariable добавляет или заменяет переменную окружения.
// PUT /api/v1/environments/{id}/variables/{key}
func (h *Handler) SetVariable(w http.ResponseWriter, r *http.Request) {
	var req SetVariableRequest
	if err := decodeBody(r, &req, false); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	env, err := h.envs.SetVariable(r.PathValue("id"), r.PathValue("key"), req.Value)
	if HandleStoreError(w, h.logger, err, "environment not found") {
		return
	}

	Success(w, EnvironmentFromDomain(env))
}

// DeleteVariable удаляет переменную окружения.
// DELETE /api/v1/environments/{id}/variables/{key}
func (h *Handler) DeleteVariable(w http.ResponseWriter, r *http.Request) {
	env, err := h.envs.DeleteVariable(r.PathValue("id"), r.PathValue("key"))
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	Success(w, EnvironmentFromDomain(env))
}
