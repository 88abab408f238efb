package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/Textflow/internal/definition"
	"github.com/shaiso/Textflow/internal/engine"
	"github.com/shaiso/Textflow/internal/orchestrator"
	"github.com/shaiso/Textflow/internal/repo"
	"github.com/shaiso/Textflow/internal/tasks"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest        ErrorCode = "BAD_REQUEST"
	ErrCodeInvalidDefinition ErrorCode = "INVALID_DEFINITION"
	ErrCodeRunAborted        ErrorCode = "RUN_ABORTED"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeTooLarge          ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeNotImplemented    ErrorCode = "NOT_IMPLEMENTED"
	ErrCodeInternalError     ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
//
// Reason уточняет код для INVALID_DEFINITION и RUN_ABORTED.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Reason  string    `json:"reason,omitempty"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

// reason — соответствие ошибки и уточнения кода.
type reason struct {
	err  error
	name string
}

// definitionReasons проверяются по порядку: частные ошибки раньше
// ErrInvalidDefinition, которую они оборачивают.
var definitionReasons = []reason{
	{definition.ErrUnknownFormat, "unknown_format"},
	{definition.ErrParse, "parse"},
	{definition.ErrPathOutsideRoot, "path_outside_base_dir"},
	{definition.ErrInvalidExternal, "invalid_external"},
	{definition.ErrInvalidSource, "invalid_source"},
	{definition.ErrDuplicateTask, "duplicate_task"},
	{orchestrator.ErrRecursiveWorkflow, "recursive_workflow"},
	{tasks.ErrUnknownType, "unknown_task_type"},
	{tasks.ErrInvalidConfig, "invalid_task_config"},
	{definition.ErrInvalidDefinition, "validation"},
}

// abortReasons — фатальные ошибки, прерывающие run до запуска задач.
var abortReasons = []reason{
	{engine.ErrGraphHasCycle, "graph_has_cycle"},
	{engine.ErrDuplicateMainOutput, "duplicate_main_output"},
	{engine.ErrDuplicateNamedOutput, "duplicate_named_output"},
	{engine.ErrDuplicateJobID, "duplicate_job_id"},
	{engine.ErrEmptyJobID, "empty_job_id"},
}

// reasonOf возвращает уточнение для err или fallback.
func reasonOf(err error, reasons []reason, fallback string) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return fallback
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// NotImplemented отправляет ошибку 501.
func NotImplemented(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotImplemented, ErrCodeNotImplemented, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// DefinitionError отправляет ошибку 400 для определения, которое
// не удалось загрузить.
func DefinitionError(w http.ResponseWriter, err error) {
	JSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
		Code:    ErrCodeInvalidDefinition,
		Reason:  reasonOf(err, definitionReasons, "invalid"),
		Message: err.Error(),
	}})
}

// RunAborted отправляет ошибку 422 для run, прерванного фатальной
// ошибкой. Запись run передаётся в data.
func RunAborted(w http.ResponseWriter, err error, run RunResponse) {
	JSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorDetail{
		Code:    ErrCodeRunAborted,
		Reason:  reasonOf(err, abortReasons, "aborted"),
		Message: err.Error(),
		Data:    run,
	}})
}

// HandleRepoError преобразует ошибку репозитория в HTTP ответ.
func HandleRepoError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, repo.ErrNotFound) {
		NotFound(w, notFoundMsg)
		return true
	}

	InternalError(w, logger, err)
	return true
}
