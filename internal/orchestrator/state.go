package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/engine"
)

// RunState — состояние выполнения одного run в памяти.
//
// RunState создаётся на каждый вызов Run и не разделяется между runs.
// Это единственное изменяемое состояние планировщика: таблица статусов
// задач и таблица опубликованных значений. Доступ защищён одним мьютексом.
type RunState struct {
	// Plan — результат разрешения привязок.
	Plan *engine.Plan

	// statuses — статус каждой задачи (jobID → status).
	statuses map[string]domain.JobStatus

	// errs — ошибка упавшей или пропущенной задачи.
	errs map[string]*engine.JobError

	// produced — опубликованные значения выходов задач.
	produced map[domain.OutputRef]domain.Value

	// durations — время выполнения запущенных задач.
	durations map[string]time.Duration

	// cancelled — run отменён.
	cancelled bool

	// mu — мьютекс для потокобезопасного доступа.
	mu sync.RWMutex
}

// NewRunState создаёт новый RunState; все задачи в статусе PENDING.
func NewRunState(plan *engine.Plan) *RunState {
	s := &RunState{
		Plan:      plan,
		statuses:  make(map[string]domain.JobStatus, len(plan.DAG.Ordered)),
		errs:      make(map[string]*engine.JobError),
		produced:  make(map[domain.OutputRef]domain.Value),
		durations: make(map[string]time.Duration),
	}
	for _, node := range plan.DAG.Ordered {
		s.statuses[node.ID] = domain.JobStatusPending
	}
	return s
}

// isAllowedTransition описывает автомат состояний задачи.
func isAllowedTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusPending:
		return to == domain.JobStatusReady || to == domain.JobStatusSkipped || to == domain.JobStatusFailed
	case domain.JobStatusReady:
		return to == domain.JobStatusRunning || to == domain.JobStatusSkipped
	case domain.JobStatusRunning:
		return to == domain.JobStatusSucceeded || to == domain.JobStatusFailed
	default:
		return false
	}
}

// transition выполняет проверенный переход. Вызывается под s.mu.
func (s *RunState) transition(jobID string, to domain.JobStatus) error {
	cur, ok := s.statuses[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if !isAllowedTransition(cur, to) {
		return fmt.Errorf("%w for %q: %s -> %s", ErrInvalidTransition, jobID, cur, to)
	}
	s.statuses[jobID] = to
	return nil
}

// Status возвращает статус задачи.
func (s *RunState) Status(jobID string) domain.JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statuses[jobID]
}

// status — то же, что Status, без блокировки.
func (s *RunState) status(jobID string) domain.JobStatus {
	return s.statuses[jobID]
}

// Err возвращает ошибку задачи или nil.
func (s *RunState) Err(jobID string) *engine.JobError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errs[jobID]
}

// Promote переводит задачи, все производители которых выполнены, в READY
// и возвращает все задачи в READY в порядке объявления.
func (s *RunState) Promote() []*engine.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, node := range s.Plan.DAG.GetReadyNodes(s.status) {
		// Переход из PENDING в READY всегда допустим
		s.statuses[node.ID] = domain.JobStatusReady
	}

	ready := make([]*engine.Node, 0)
	for _, node := range s.Plan.DAG.Ordered {
		if s.statuses[node.ID] == domain.JobStatusReady {
			ready = append(ready, node)
		}
	}
	return ready
}

// Start переводит задачу из READY в RUNNING.
func (s *RunState) Start(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(jobID, domain.JobStatusRunning)
}

// Succeed публикует выходы задачи и переводит её в SUCCEEDED.
//
// Значения публикуются до того, как зависимые задачи могут стать READY.
func (s *RunState) Succeed(jobID string, outputs map[string]domain.Value, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition(jobID, domain.JobStatusSucceeded); err != nil {
		return err
	}
	for port, v := range outputs {
		s.produced[domain.OutputRef{JobID: jobID, Port: port}] = v
	}
	s.durations[jobID] = d
	return nil
}

// Fail переводит задачу в FAILED и пропускает всех её потомков.
// Возвращает ID пропущенных задач в порядке объявления.
func (s *RunState) Fail(jobID string, jerr *engine.JobError, d time.Duration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.statuses[jobID] == domain.JobStatusRunning {
		s.durations[jobID] = d
	}
	if err := s.transition(jobID, domain.JobStatusFailed); err != nil {
		return nil, err
	}
	s.errs[jobID] = jerr

	return s.skipDownstream(jobID)
}

// Reject переводит задачу, отклонённую при разрешении привязок,
// из PENDING в FAILED. Потомки не затрагиваются: см. SkipDownstream.
func (s *RunState) Reject(jobID string, jerr *engine.JobError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.transition(jobID, domain.JobStatusFailed); err != nil {
		return err
	}
	s.errs[jobID] = jerr
	return nil
}

// SkipDownstream пропускает транзитивных потомков задачи, которые ещё
// не запущены. Возвращает ID пропущенных задач в порядке объявления.
func (s *RunState) SkipDownstream(jobID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipDownstream(jobID)
}

// skipDownstream пропускает транзитивных потомков задачи. Вызывается под s.mu.
//
// Потомок в RUNNING означает ошибку синхронизации: он не мог стать READY,
// пока производитель не завершился успешно.
func (s *RunState) skipDownstream(jobID string) ([]string, error) {
	var skipped []string
	for _, node := range s.Plan.DAG.Downstream(jobID) {
		switch s.statuses[node.ID] {
		case domain.JobStatusPending, domain.JobStatusReady:
			s.statuses[node.ID] = domain.JobStatusSkipped
			skipped = append(skipped, node.ID)
		case domain.JobStatusRunning:
			return skipped, fmt.Errorf("%w: downstream job %q is RUNNING while %q failed",
				ErrInvalidTransition, node.ID, jobID)
		}
	}
	return skipped, nil
}

// Cancel пропускает все задачи, которые ещё не запущены, и отмечает run
// как отменённый. Если пропускать нечего, run отменённым не считается.
// Возвращает ID пропущенных задач.
func (s *RunState) Cancel() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var skipped []string
	for _, node := range s.Plan.DAG.Ordered {
		switch s.statuses[node.ID] {
		case domain.JobStatusPending, domain.JobStatusReady:
			s.statuses[node.ID] = domain.JobStatusSkipped
			s.errs[node.ID] = &engine.JobError{
				JobID:   node.ID,
				Task:    node.Job.Task,
				Message: "Run cancelled before the job started",
				Err:     engine.ErrRunCancelled,
			}
			skipped = append(skipped, node.ID)
		}
	}
	if len(skipped) > 0 {
		s.cancelled = true
	}
	return skipped
}

// IsCancelled проверяет, был ли run отменён.
func (s *RunState) IsCancelled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancelled
}

// Produced возвращает опубликованное значение выхода задачи.
func (s *RunState) Produced(ref domain.OutputRef) (domain.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.produced[ref]
	return v, ok
}

// Duration возвращает время выполнения задачи; 0, если задача не запускалась.
func (s *RunState) Duration(jobID string) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.durations[jobID]
}

// IsComplete проверяет, что все задачи в конечном статусе.
func (s *RunState) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Plan.DAG.IsComplete(s.status)
}

// Stats возвращает статистику выполнения.
func (s *RunState) Stats() RunStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := RunStats{TotalJobs: len(s.statuses)}
	for _, st := range s.statuses {
		switch st {
		case domain.JobStatusSucceeded:
			stats.SucceededJobs++
		case domain.JobStatusFailed:
			stats.FailedJobs++
		case domain.JobStatusSkipped:
			stats.SkippedJobs++
		case domain.JobStatusRunning:
			stats.RunningJobs++
		default:
			stats.PendingJobs++
		}
	}
	return stats
}

// RunStats — статистика выполнения run.
type RunStats struct {
	TotalJobs     int `json:"total_jobs"`
	SucceededJobs int `json:"succeeded_jobs"`
	FailedJobs    int `json:"failed_jobs"`
	SkippedJobs   int `json:"skipped_jobs"`
	RunningJobs   int `json:"running_jobs"`
	PendingJobs   int `json:"pending_jobs"`
}
