package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/Textflow/internal/definition"
	"github.com/shaiso/Textflow/internal/orchestrator"
)

// defaultListLimit — размер списка runs по умолчанию.
const defaultListLimit = 50

// CreateRun выполняет присланное определение workflow.
// POST /api/v1/runs?format=yaml|json|hcl
//
// Формат без параметра определяется по Content-Type (по умолчанию YAML).
// Запись сохраняется, если настроено хранилище.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	// 1. Формат
	format, err := requestFormat(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	// 2. Тело
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "definition is too large")
			return
		}
		BadRequest(w, "invalid request body")
		return
	}

	// 3. Определение
	def, err := h.loader.Load(data, format, h.baseDir)
	if err != nil {
		DefinitionError(w, err)
		return
	}

	// 4. Выполнение
	logger := requestLogger(r, h.logger)
	runner := def.Runner(orchestrator.RunnerConfig{
		Store:  h.store,
		Events: h.events,
		Logger: logger,
	})
	rec, _, err := runner.Execute(r.Context(), def.Workflow, def.Externals)
	switch {
	case err != nil && (rec == nil || errors.Is(err, orchestrator.ErrSaveRun)):
		InternalError(w, logger, err)
		return
	case err != nil:
		RunAborted(w, err, RunFromDomain(*rec))
		return
	}

	Created(w, RunFromDomain(*rec))
}

// GetRun возвращает сохранённый run.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		NotImplemented(w, "report store is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	rec, err := h.store.GetByID(r.Context(), id)
	if HandleRepoError(w, requestLogger(r, h.logger), err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*rec))
}

// ListWorkflowRuns возвращает последние runs workflow.
// GET /api/v1/workflows/{name}/runs?limit=...
func (h *Handler) ListWorkflowRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		NotImplemented(w, "report store is not configured")
		return
	}

	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.store.ListByWorkflow(r.Context(), r.PathValue("name"), limit)
	if HandleRepoError(w, requestLogger(r, h.logger), err, "") {
		return
	}

	result := make([]RunSummary, len(records))
	for i, rec := range records {
		result[i] = SummaryFromDomain(rec)
	}

	List(w, result, len(result))
}

// Health сообщает о состоянии сервера.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	Success(w, HealthResponse{
		Status: "ok",
		Store:  h.store != nil,
		Events: h.events != nil,
	})
}

// requestFormat определяет формат определения в запросе.
func requestFormat(r *http.Request) (definition.Format, error) {
	if s := r.URL.Query().Get("format"); s != "" {
		return definition.ParseFormat(s)
	}

	ct := strings.ToLower(r.Header.Get("Content-Type"))
	switch {
	case strings.Contains(ct, "json"):
		return definition.FormatJSON, nil
	case strings.Contains(ct, "hcl"):
		return definition.FormatHCL, nil
	default:
		return definition.FormatYAML, nil
	}
}
