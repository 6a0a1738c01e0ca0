package api

import (
	"net/http"

	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/featurefile"
	"github.com/shaiso/Stagehand/internal/library"
)

// ListFeatures возвращает библиотеку features, от новых к старым.
// GET /api/v1/features?tag=@smoke
func (h *Handler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := library.WithTag(r.Context(), h.features, r.URL.Query().Get("tag"))
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	result := make([]FeatureResponse, len(features))
	for i, f := range features {
		result[i] = FeatureFromDomain(f)
	}

	List(w, result, len(result))
}

// CreateFeature добавляет feature в библиотеку.
// POST /api/v1/features
func (h *Handler) CreateFeature(w http.ResponseWriter, r *http.Request) {
	var req CreateFeatureRequest
	if err := decodeBody(r, &req, false); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Content == "" {
		BadRequest(w, "content is required")
		return
	}

	feature, err := h.features.Add(r.Context(), domain.Feature{
		ID:        req.ID,
		Content:   req.Content,
		StepsCode: req.StepsCode,
	})
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	h.logger.Info("feature added", "feature_id", feature.ID, "title", feature.Title)
	Created(w, FeatureFromDomain(*feature))
}

// GetFeature возвращает feature по ID.
// GET /api/v1/features/{id}
func (h *Handler) GetFeature(w http.ResponseWriter, r *http.Request) {
	feature, err := h.features.Get(r.Context(), r.PathValue("id"))
	if HandleStoreError(w, h.logger, err, "feature not found") {
		return
	}

	Success(w, FeatureFromDomain(*feature))
}

// DeleteFeature удаляет feature. Уже поставленные заявки не затрагиваются:
// они держат снимок feature.
// DELETE /api/v1/features/{id}
func (h *Handler) DeleteFeature(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if HandleStoreError(w, h.logger, h.features.Delete(r.Context(), id), "feature not found") {
		return
	}

	h.logger.Info("feature deleted", "feature_id", id)
	NoContent(w)
}

// ListFeatureFiles разбивает код шагов feature на файлы.
// GET /api/v1/features/{id}/files
func (h *Handler) ListFeatureFiles(w http.ResponseWriter, r *http.Request) {
	feature, err := h.features.Get(r.Context(), r.PathValue("id"))
	if HandleStoreError(w, h.logger, err, "feature not found") {
		return
	}

	files := featurefile.SplitStepFiles(feature.StepsCode)
	List(w, files, len(files))
}

// ListTags возвращает все теги библиотеки.
// GET /api/v1/tags
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := library.Tags(r.Context(), h.features)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	List(w, tags, len(tags))
}

// RunFeature запускает feature напрямую, в обход очереди.
// Если слот занят, заявка отбрасывается: 200 и started=false.
// POST /api/v1/features/{id}/run
func (h *Handler) RunFeature(w http.ResponseWriter, r *http.Request) {
	var req RunFeatureRequest
	if err := decodeBody(r, &req, true); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	feature, err := h.features.Get(r.Context(), r.PathValue("id"))
	if HandleStoreError(w, h.logger, err, "feature not found") {
		return
	}

	run := domain.NewRunRequest(*feature, req.Tags, req.DryRun)
	if !h.coordinator.Run(run) {
		Success(w, RunStartedResponse{Started: false})
		return
	}

	Accepted(w, RunStartedResponse{Started: true, RequestID: &run.ID})
}
