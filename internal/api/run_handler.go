package api

import (
	"io"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/library"
	"github.com/shaiso/Stagehand/internal/repo"
)

// GetConfig возвращает текущие настройки выполнения.
// GET /api/v1/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	Success(w, h.coordinator.Settings().Get())
}

// UpdateConfig меняет настройки выполнения. Текущий запуск их не увидит.
// PUT /api/v1/config
func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if err := decodeBody(r, &req, false); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	settings := h.coordinator.Settings()
	cfg := req.Apply(settings.Get())
	if HandleStoreError(w, h.logger, settings.Update(cfg), "") {
		return
	}

	h.logger.Info("execution config updated", "mode", cfg.Mode, "method", cfg.Method)
	Success(w, cfg)
}

// GetQueue возвращает текущий запуск и ожидающие заявки.
// GET /api/v1/queue
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	status := h.coordinator.Status()
	Success(w, QueueResponse{
		Busy:    status.Busy(),
		Active:  status.Active,
		Pending: status.Pending,
	})
}

// EnqueueRuns ставит features в очередь.
// POST /api/v1/queue
func (h *Handler) EnqueueRuns(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := decodeBody(r, &req, false); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	req.Tag = domain.NormalizeTag(req.Tag)
	if len(req.FeatureIDs) == 0 && req.Tag == "" && !req.All {
		BadRequest(w, "feature_ids, tag or all is required")
		return
	}

	features, err := h.selectFeatures(r, req)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	runs := make([]*domain.RunRequest, len(features))
	ids := make([]uuid.UUID, len(features))
	for i, f := range features {
		runs[i] = domain.NewRunRequest(f, req.Tags, req.DryRun)
		ids[i] = runs[i].ID
	}

	if HandleStoreError(w, h.logger, h.coordinator.Enqueue(runs...), "") {
		return
	}

	Accepted(w, EnqueueResponse{Enqueued: len(runs), RequestIDs: ids})
}

// selectFeatures выбирает features для постановки.
// Явные ID должны существовать все. По тегу (или все) ставятся от старых
// к новым, кроме feature, который выполняется сейчас.
func (h *Handler) selectFeatures(r *http.Request, req EnqueueRequest) ([]domain.Feature, error) {
	if len(req.FeatureIDs) > 0 {
		features := make([]domain.Feature, 0, len(req.FeatureIDs))
		for _, id := range req.FeatureIDs {
			f, err := h.features.Get(r.Context(), id)
			if err != nil {
				return nil, err
			}
			features = append(features, *f)
		}
		return features, nil
	}

	features, err := library.WithTag(r.Context(), h.features, req.Tag)
	if err != nil {
		return nil, err
	}
	if active := h.coordinator.Status().Active; active != nil {
		features = slices.DeleteFunc(features, func(f domain.Feature) bool {
			return f.ID == active.Feature.ID
		})
	}
	slices.Reverse(features)
	return features, nil
}

// CancelQueue снимает с очереди все ожидающие заявки.
// DELETE /api/v1/queue
func (h *Handler) CancelQueue(w http.ResponseWriter, r *http.Request) {
	discarded := h.coordinator.Cancel()
	Success(w, CancelResponse{Discarded: discarded})
}

// ListRuns возвращает журнал запусков, от новых к старым.
// GET /api/v1/runs?limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	led := h.coordinator.Ledger()
	records := led.List(queryInt(r, "limit", 0), queryInt(r, "offset", 0))

	result := make([]RunRecordResponse, len(records))
	for i, rec := range records {
		result[i] = RunRecordFromDomain(rec)
	}

	List(w, result, led.Len())
}

// GetRun возвращает запись журнала по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupRecord(w, r)
	if !ok {
		return
	}

	Success(w, RunRecordFromDomain(rec))
}

// GetArtifacts описывает, где лежат артефакты запуска.
// GET /api/v1/runs/{id}/artifacts
func (h *Handler) GetArtifacts(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupRecord(w, r)
	if !ok {
		return
	}

	bundle, err := h.artifacts.Resolve(rec)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	Success(w, bundle)
}

// DownloadArtifacts отдаёт артефакты запуска файлом.
// Для simulated — текстовый отчёт, для real — архив из сервиса выполнения.
// GET /api/v1/runs/{id}/artifacts/download
func (h *Handler) DownloadArtifacts(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookupRecord(w, r)
	if !ok {
		return
	}

	file, err := h.artifacts.Open(r.Context(), rec)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}
	defer file.Body.Close()

	disposition := file.Disposition
	if disposition == "" {
		disposition = `attachment; filename="` + file.Filename + `"`
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", disposition)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, file.Body); err != nil {
		h.logger.Warn("artifact download interrupted", "run_id", rec.ID, "error", err)
	}
}

// ListArchivedRuns возвращает записи из архива PostgreSQL.
// В отличие от журнала, архив не ограничен по размеру.
// GET /api/v1/archive/runs?feature_id=...&status=...&limit=...&offset=...
func (h *Handler) ListArchivedRuns(w http.ResponseWriter, r *http.Request) {
	filter := repo.RecordFilter{
		FeatureID: r.URL.Query().Get("feature_id"),
		Limit:     queryInt(r, "limit", 50),
		Offset:    queryInt(r, "offset", 0),
	}

	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.RunStatus(status)
		if s != domain.RunStatusPassed && s != domain.RunStatusFailed {
			BadRequest(w, "status must be passed or failed")
			return
		}
		filter.Status = s
	}

	records, err := h.records.List(r.Context(), filter)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	result := make([]RunRecordResponse, len(records))
	for i, rec := range records {
		result[i] = RunRecordFromDomain(rec)
	}

	List(w, result, len(result))
}

// lookupRecord находит запись журнала по {id}. При ошибке ответ уже отправлен.
func (h *Handler) lookupRecord(w http.ResponseWriter, r *http.Request) (domain.RunRecord, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return domain.RunRecord{}, false
	}

	rec, err := h.coordinator.Ledger().Get(id)
	if HandleStoreError(w, h.logger, err, "run not found") {
		return domain.RunRecord{}, false
	}

	return rec, true
}
