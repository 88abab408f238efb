package engine

import (
	"fmt"
	"sort"

	"github.com/shaiso/Textflow/internal/domain"
)

// Validate выполняет структурную валидацию workflow.
//
// Проверяет:
// - Непустые и уникальные ID задач
// - Наличие ссылки на объект задачи
// - Корректность источников входов
// - Корректность заявок выходов
//
// Любая ошибка здесь фатальна: run не начинается.
func Validate(wf *domain.Workflow) error {
	jobIDs := make(map[string]bool, len(wf.Jobs))

	for i := range wf.Jobs {
		job := &wf.Jobs[i]

		if err := ValidateJob(job, jobIDs); err != nil {
			return err
		}
	}

	return nil
}

// ValidateJob валидирует одну задачу.
// jobIDs — уже встреченные ID задач (для проверки уникальности).
func ValidateJob(job *domain.Job, jobIDs map[string]bool) error {
	// Проверка ID
	if job.ID == "" {
		return &StructureError{Field: "id", Message: "job has empty ID", Err: ErrEmptyJobID}
	}
	if jobIDs[job.ID] {
		return &StructureError{JobID: job.ID, Field: "id",
			Message: fmt.Sprintf("duplicate job ID: %s", job.ID), Err: ErrDuplicateJobID}
	}
	jobIDs[job.ID] = true

	// Проверка ссылки на объект задачи
	if job.Task == "" {
		return &StructureError{JobID: job.ID, Field: "task",
			Message: "job has no task object", Err: ErrEmptyTaskRef}
	}

	// Проверка источников
	for _, port := range sortedKeys(job.Inputs) {
		if err := validateSource(job.ID, port, job.Inputs[port]); err != nil {
			return err
		}
	}

	// Проверка заявок
	for _, port := range sortedKeys(job.Outputs) {
		claim := job.Outputs[port]
		if claim.Main && claim.Name != "" {
			return &StructureError{JobID: job.ID, Field: "outputs." + port,
				Message: fmt.Sprintf("output %s is claimed both as main and as %q", port, claim.Name), Err: ErrInvalidClaim}
		}
		if !claim.Main && claim.Name == "" {
			return &StructureError{JobID: job.ID, Field: "outputs." + port,
				Message: fmt.Sprintf("output %s claim has neither main nor name", port), Err: ErrInvalidClaim}
		}
	}

	return nil
}

// validateSource проверяет, что источник заполнен согласно своему типу.
func validateSource(jobID, port string, src domain.Source) error {
	field := "inputs." + port

	switch src.Type {
	case domain.SourceExternal:
		if src.Name == "" {
			return &StructureError{JobID: jobID, Field: field,
				Message: fmt.Sprintf("input %s: external source has no name", port), Err: ErrInvalidSource}
		}
	case domain.SourceJob:
		if src.JobID == "" || src.Port == "" {
			return &StructureError{JobID: jobID, Field: field,
				Message: fmt.Sprintf("input %s: job source needs both job and port", port), Err: ErrInvalidSource}
		}
	default:
		return &StructureError{JobID: jobID, Field: field,
			Message: fmt.Sprintf("input %s: unknown source type %q", port, src.Type), Err: ErrInvalidSource}
	}

	return nil
}

// sortedKeys возвращает ключи map в лексическом порядке.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
