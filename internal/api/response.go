package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shaiso/Stagehand/internal/artifact"
	"github.com/shaiso/Stagehand/internal/backend"
	"github.com/shaiso/Stagehand/internal/domain"
	"github.com/shaiso/Stagehand/internal/ledger"
	"github.com/shaiso/Stagehand/internal/library"
	"github.com/shaiso/Stagehand/internal/repo"
	"github.com/shaiso/Stagehand/internal/runner"
	"github.com/shaiso/Stagehand/internal/scheduler"
)

// ErrorCode — машиночитаемый код в теле ошибки.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInvalidState  ErrorCode = "INVALID_STATE"
	ErrCodeBadGateway    ErrorCode = "BAD_GATEWAY"
	ErrCodeUnavailable   ErrorCode = "UNAVAILABLE"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// Конверты ответов:
//
//	{"data": ...}
//	{"data": [...], "total": n}
//	{"error": {"code": "...", "message": "..."}}
type (
	envelope struct {
		Data any `json:"data"`
	}

	listEnvelope struct {
		Data  any `json:"data"`
		Total int `json:"total"`
	}

	errorEnvelope struct {
		Error errorBody `json:"error"`
	}

	errorBody struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	}
)

// JSON пишет v со статусом status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func Success(w http.ResponseWriter, data any)  { JSON(w, http.StatusOK, envelope{data}) }
func Created(w http.ResponseWriter, data any)  { JSON(w, http.StatusCreated, envelope{data}) }
func Accepted(w http.ResponseWriter, data any) { JSON(w, http.StatusAccepted, envelope{data}) }

// List отвечает страницей data; total — размер всей выборки.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, listEnvelope{Data: data, Total: total})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error пишет конверт ошибки.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, errorEnvelope{errorBody{Code: code, Message: message}})
}

func BadRequest(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, msg)
}

func NotFound(w http.ResponseWriter, msg string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, msg)
}

func Conflict(w http.ResponseWriter, msg string) {
	Error(w, http.StatusConflict, ErrCodeConflict, msg)
}

// BadGateway — сервис выполнения недоступен или ответил ошибкой.
func BadGateway(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadGateway, ErrCodeBadGateway, msg)
}

func Unavailable(w http.ResponseWriter, msg string) {
	Error(w, http.StatusServiceUnavailable, ErrCodeUnavailable, msg)
}

// InternalError логирует err и скрывает его от клиента.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// errorMapping сопоставляет sentinel-ошибки пакетов со статусом ответа.
type errorMapping struct {
	targets []error
	status  int
	code    ErrorCode
}

var storeErrors = []errorMapping{
	{[]error{library.ErrNotFound, repo.ErrNotFound, ledger.ErrRecordNotFound},
		http.StatusNotFound, ErrCodeNotFound},
	{[]error{library.ErrInvalid, scheduler.ErrInvalidSchedule, domain.ErrInvalidConfig, runner.ErrEmptyRequest},
		http.StatusBadRequest, ErrCodeBadRequest},
	{[]error{library.ErrAlreadyExists, repo.ErrAlreadyExists},
		http.StatusConflict, ErrCodeConflict},
	{[]error{artifact.ErrUnknownOrigin},
		http.StatusUnprocessableEntity, ErrCodeInvalidState},
	{[]error{artifact.ErrFetch, backend.ErrRequest, backend.ErrStatus},
		http.StatusBadGateway, ErrCodeBadGateway},
	{[]error{runner.ErrCoordinatorStopped},
		http.StatusServiceUnavailable, ErrCodeUnavailable},
}

// HandleStoreError отвечает ошибкой, соответствующей err, и возвращает true.
// При err == nil ничего не пишет и возвращает false.
// notFoundMsg заменяет текст 404, если не пуст.
func HandleStoreError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}

	for _, m := range storeErrors {
		if !matchesAny(err, m.targets) {
			continue
		}

		msg := err.Error()
		switch m.status {
		case http.StatusNotFound:
			if notFoundMsg != "" {
				msg = notFoundMsg
			}
		case http.StatusBadGateway:
			logger.Warn("backend error", "error", err)
		}
		Error(w, m.status, m.code, msg)
		return true
	}

	InternalError(w, logger, err)
	return true
}

func matchesAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// queryInt читает неотрицательный целый query-параметр, иначе def.
func queryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return def
	}
	return n
}

// decodeBody читает JSON-тело. При allowEmpty пустое тело не ошибка.
func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
