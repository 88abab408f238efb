package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/Textflow/internal/domain"
)

// TaskCatalog — источник описаний портов для объектов задач.
type TaskCatalog interface {
	// Has проверяет, существует ли объект задачи.
	Has(name string) bool

	// PortsOf возвращает порты объекта задачи для конфигурации задачи.
	PortsOf(name string, config map[string]any) (domain.Ports, error)
}

// Binding — разрешённая привязка входного порта.
type Binding struct {
	Port   domain.InputPort
	Source domain.Source
}

// Plan — результат разрешения привязок workflow.
//
// Plan неизменяем после построения и используется планировщиком.
type Plan struct {
	// Workflow — исходный workflow.
	Workflow *domain.Workflow

	// DAG — граф зависимостей задач.
	DAG *DAG

	// Claims — заявки на выходы workflow.
	Claims *ClaimTable

	// Ports — порты задач, для которых удалось получить описание.
	Ports map[string]domain.Ports

	// Bindings — привязки входов задачи в лексическом порядке портов.
	Bindings map[string][]Binding

	// Published — опубликованный вид каждого выхода задачи. KindAny
	// означает, что потребители не сузили объявленные виды.
	Published map[domain.OutputRef]domain.Kind

	// Consumers — обратный индекс: выход задачи → входы-потребители
	// (по порядку объявления задач, затем по имени порта).
	Consumers map[domain.OutputRef][]domain.InputRef

	// JobErrors — ошибки разрешения привязок по задачам.
	// Для каждой задачи хранится первая найденная ошибка.
	JobErrors map[string]*JobError

	// externalUsers — потребители внешних объектов по имени.
	externalUsers map[string][]domain.InputRef
}

// Err возвращает ошибку разрешения задачи или nil.
func (p *Plan) Err(jobID string) *JobError {
	return p.JobErrors[jobID]
}

// FailedJobs возвращает ID задач с ошибками разрешения по порядку объявления.
func (p *Plan) FailedJobs() []string {
	ids := make([]string, 0, len(p.JobErrors))
	for _, node := range p.DAG.Ordered {
		if _, failed := p.JobErrors[node.ID]; failed {
			ids = append(ids, node.ID)
		}
	}
	return ids
}

// ConsumersOf возвращает потребителей выхода задачи.
func (p *Plan) ConsumersOf(ref domain.OutputRef) []domain.InputRef {
	return p.Consumers[ref]
}

// IsUsed проверяет, потребляется ли выход или заявлен ли он как выход workflow.
func (p *Plan) IsUsed(ref domain.OutputRef) bool {
	return len(p.Consumers[ref]) > 0 || p.Claims.IsClaimed(ref)
}

// OutputKinds возвращает опубликованные виды выходов задачи.
func (p *Plan) OutputKinds(jobID string) map[string]domain.Kind {
	ports, ok := p.Ports[jobID]
	if !ok {
		return nil
	}
	kinds := make(map[string]domain.Kind, len(ports.Outputs))
	for _, out := range ports.Outputs {
		if k, ok := p.Published[domain.OutputRef{JobID: jobID, Port: out.Name}]; ok {
			kinds[out.Name] = k
		}
	}
	return kinds
}

// Resolver разрешает привязки входов и выводит виды значений.
type Resolver struct {
	catalog TaskCatalog
	lattice *Lattice
}

// NewResolver создаёт новый Resolver.
// Если lattice == nil, используется DefaultLattice.
func NewResolver(catalog TaskCatalog, lattice *Lattice) *Resolver {
	if lattice == nil {
		lattice = DefaultLattice()
	}
	return &Resolver{catalog: catalog, lattice: lattice}
}

// Resolve строит Plan для workflow и набора внешних объектов.
//
// Фатальные ошибки (структура, дубли выходов, цикл) возвращаются как error,
// Plan в этом случае nil. Ошибки отдельных задач собираются в Plan.JobErrors.
func (r *Resolver) Resolve(wf *domain.Workflow, externals domain.ObjectSet) (*Plan, error) {
	return r.resolve(wf, externals, true)
}

// resolve — общая часть Resolve и Interface.
// checkExternals=false пропускает поиск внешних объектов.
func (r *Resolver) resolve(wf *domain.Workflow, externals domain.ObjectSet, checkExternals bool) (*Plan, error) {
	// 1. Структурная валидация
	if err := Validate(wf); err != nil {
		return nil, err
	}

	// 2. Заявки на выходы workflow
	claims, err := CollectClaims(wf)
	if err != nil {
		return nil, err
	}

	// 3. Граф зависимостей и проверка на циклы
	dag, err := BuildDAG(wf)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Workflow:      wf,
		DAG:           dag,
		Claims:        claims,
		Ports:         make(map[string]domain.Ports, len(wf.Jobs)),
		Bindings:      make(map[string][]Binding, len(wf.Jobs)),
		Published:     make(map[domain.OutputRef]domain.Kind),
		Consumers:     make(map[domain.OutputRef][]domain.InputRef),
		JobErrors:     make(map[string]*JobError),
		externalUsers: make(map[string][]domain.InputRef),
	}

	// 4. Порты всех задач (нужны до привязок: задача может ссылаться
	// на задачу, объявленную ниже)
	for _, node := range dag.Ordered {
		r.resolvePorts(plan, node.Job)
	}

	// 5. Привязки входов в порядке объявления задач
	for _, node := range dag.Ordered {
		if plan.JobErrors[node.ID] != nil {
			continue
		}
		r.resolveBindings(plan, node.Job, externals, checkExternals)
	}

	// 6-8. Каждый этап принимает решения по снимку задач без ошибок,
	// снятому до этапа: результат не зависит от порядка объявления
	resolved := plan.resolvedJobs()
	for _, node := range dag.Ordered {
		if resolved[node.ID] {
			r.checkSourceKinds(plan, node.Job, resolved)
		}
	}

	for _, node := range dag.Ordered {
		if resolved[node.ID] {
			checkMandatoryOutputs(plan, node.Job)
		}
	}

	resolved = plan.resolvedJobs()
	for _, node := range dag.Ordered {
		if resolved[node.ID] {
			r.checkCommonKinds(plan, node.Job, resolved)
		}
	}

	// 9. Публикация видов. Отказ потребителя только расширяет
	// пересечение, поэтому новых ошибок здесь не бывает
	resolved = plan.resolvedJobs()
	for _, node := range dag.Ordered {
		if resolved[node.ID] {
			r.publishOutputs(plan, node.Job, resolved)
		}
	}

	return plan, nil
}

// resolvedJobs возвращает задачи, у которых пока нет ошибок.
func (p *Plan) resolvedJobs() map[string]bool {
	resolved := make(map[string]bool, len(p.Workflow.Jobs))
	for _, job := range p.Workflow.Jobs {
		if p.JobErrors[job.ID] == nil {
			resolved[job.ID] = true
		}
	}
	return resolved
}

// resolvePorts получает и проверяет порты объекта задачи.
func (r *Resolver) resolvePorts(plan *Plan, job *domain.Job) {
	if !r.catalog.Has(job.Task) {
		plan.fail(job, "", fmt.Sprintf("Task object %q not found", job.Task), ErrTaskNotFound)
		return
	}

	ports, err := r.catalog.PortsOf(job.Task, job.Config)
	if err != nil {
		base := ErrInvalidTaskConfig
		if errors.Is(err, ErrInvalidPorts) {
			base = ErrInvalidPorts
		}
		plan.fail(job, "", fmt.Sprintf("Task object %q: %v", job.Task, err), fmt.Errorf("%w: %w", base, err))
		return
	}

	if err := ports.Validate(); err != nil {
		plan.fail(job, "", fmt.Sprintf("Task object %q: %v", job.Task, err), ErrInvalidPorts)
		return
	}

	plan.Ports[job.ID] = ports

	// Привязки к несуществующим входам
	for _, name := range sortedKeys(job.Inputs) {
		if _, ok := ports.Input(name); !ok {
			plan.fail(job, name, fmt.Sprintf("No input named %s is found for task object %s", name, job.Task), ErrUnknownInput)
			return
		}
	}

	// Заявки несуществующих выходов
	for _, name := range sortedKeys(job.Outputs) {
		if _, ok := ports.Output(name); !ok {
			plan.fail(job, name, fmt.Sprintf("No output named %s is found for task object %s", name, job.Task), ErrUnknownOutput)
			return
		}
	}
}

// resolveBindings разрешает входы задачи в лексическом порядке портов.
//
// Если у задачи находится ошибка, её привязки в обратный индекс не попадают:
// задача не выполнится и не должна ограничивать виды производителей.
func (r *Resolver) resolveBindings(plan *Plan, job *domain.Job, externals domain.ObjectSet, checkExternals bool) {
	ports := plan.Ports[job.ID]
	bindings := make([]Binding, 0, len(job.Inputs))

	for _, port := range ports.SortedInputs() {
		src, bound := job.Inputs[port.Name]
		if !bound {
			if !port.Optional {
				plan.fail(job, port.Name, fmt.Sprintf("Input %s is not specified", port.Name), ErrUnspecifiedInput)
				return
			}
			continue
		}

		switch {
		case src.IsExternal():
			if checkExternals {
				value, ok := externals.Lookup(src.Name)
				if !ok {
					plan.fail(job, port.Name, fmt.Sprintf("Input %s: external object %q not found", port.Name, src.Name), ErrExternalInputNotFound)
					return
				}
				if jerr := CheckInput(value, port); jerr != nil {
					plan.failWith(job, jerr)
					return
				}
			}

		case src.IsJob():
			if jerr := r.checkJobSource(plan, port, src); jerr != nil {
				plan.failWith(job, jerr)
				return
			}
		}

		bindings = append(bindings, Binding{Port: port, Source: src})
	}

	plan.Bindings[job.ID] = bindings

	// Только теперь, когда задача разрешилась целиком, регистрируем её
	// как потребителя
	for _, b := range bindings {
		in := domain.InputRef{JobID: job.ID, Port: b.Port.Name}
		if b.Source.IsJob() {
			plan.Consumers[b.Source.Ref()] = append(plan.Consumers[b.Source.Ref()], in)
		} else {
			plan.externalUsers[b.Source.Name] = append(plan.externalUsers[b.Source.Name], in)
		}
	}
}

// checkJobSource проверяет ссылку на выход другой задачи.
func (r *Resolver) checkJobSource(plan *Plan, port domain.InputPort, src domain.Source) *JobError {
	if _, exists := plan.DAG.Nodes[src.JobID]; !exists {
		return &JobError{
			Port:    port.Name,
			Object:  src.String(),
			Message: fmt.Sprintf("Input %s: source job %q not found", port.Name, src.JobID),
			Err:     ErrSourceObjectNotFound,
		}
	}

	producerPorts, ok := plan.Ports[src.JobID]
	if !ok {
		// Производитель не разрешился: задача будет пропущена при выполнении
		return nil
	}

	if _, ok := producerPorts.Output(src.Port); !ok {
		return &JobError{
			Port:    port.Name,
			Object:  src.String(),
			Message: fmt.Sprintf("Input %s: job %s has no output %s", port.Name, src.JobID, src.Port),
			Err:     ErrSourceObjectNotFound,
		}
	}

	return nil
}

// checkSourceKinds проверяет, что вид каждого входа задачи пересекается
// с видами выхода-источника. Входы проверяются в лексическом порядке.
func (r *Resolver) checkSourceKinds(plan *Plan, job *domain.Job, resolved map[string]bool) {
	for _, b := range plan.Bindings[job.ID] {
		if !b.Source.IsJob() || !resolved[b.Source.JobID] {
			continue
		}
		ref := b.Source.Ref()
		out, _ := plan.Ports[ref.JobID].Output(ref.Port)

		if !r.lattice.Intersects(out.Kinds, b.Port.Kinds) {
			plan.failWith(job, &JobError{
				Port:   b.Port.Name,
				Object: ref.String(),
				Message: fmt.Sprintf("Input %s: source %s produces %s, input accepts %s",
					b.Port.Name, ref, formatKinds(out.Kinds), formatKinds(b.Port.Kinds)),
				Err: ErrKindMismatch,
			})
			return
		}
	}
}

// checkMandatoryOutputs проверяет, что обязательные выходы задачи
// потребляются или заявлены.
func checkMandatoryOutputs(plan *Plan, job *domain.Job) {
	for _, out := range plan.Ports[job.ID].SortedOutputs() {
		ref := domain.OutputRef{JobID: job.ID, Port: out.Name}
		if out.Mandatory && !plan.IsUsed(ref) {
			plan.fail(job, out.Name, fmt.Sprintf("Output %s is not specified for task %s", out.Name, job.Task), ErrUnclaimedOutput)
			return
		}
	}
}

// constraints собирает ограничения на выход: объявленные виды
// производителя и виды входов потребителей из resolved.
func (p *Plan) constraints(ref domain.OutputRef, out domain.OutputPort, resolved map[string]bool) ([]domain.KindSet, []string) {
	constraints := []domain.KindSet{out.Kinds}
	users := make([]string, 0)

	for _, in := range p.Consumers[ref] {
		if !resolved[in.JobID] {
			continue
		}
		port, _ := p.Ports[in.JobID].Input(in.Port)
		constraints = append(constraints, port.Kinds)
		users = append(users, fmt.Sprintf("%s accepts %s", in, formatKinds(port.Kinds)))
	}
	return constraints, users
}

// checkCommonKinds проверяет, что у ограничений каждого выхода задачи
// есть общий вид. Иначе ошибку NoCommonKindSolution получает производитель.
func (r *Resolver) checkCommonKinds(plan *Plan, job *domain.Job, resolved map[string]bool) {
	for _, out := range plan.Ports[job.ID].SortedOutputs() {
		ref := domain.OutputRef{JobID: job.ID, Port: out.Name}
		constraints, users := plan.constraints(ref, out, resolved)

		if len(r.lattice.Candidates(constraints)) == 0 {
			plan.fail(job, out.Name, fmt.Sprintf("Output %s: no solution to satisfy all users (%s)",
				out.Name, strings.Join(users, "; ")), ErrNoCommonKindSolution)
			return
		}
	}
}

// publishOutputs публикует вид каждого выхода задачи.
//
// Если потребители сужают объявленные виды производителя, публикуется
// самый специфичный общий вид. Если не сужают, а видов несколько,
// публикуется KindAny: выход проверяется по своему PortSpec.
func (r *Resolver) publishOutputs(plan *Plan, job *domain.Job, resolved map[string]bool) {
	for _, out := range plan.Ports[job.ID].SortedOutputs() {
		ref := domain.OutputRef{JobID: job.ID, Port: out.Name}
		constraints, _ := plan.constraints(ref, out, resolved)

		candidates := r.lattice.Candidates(constraints)
		if len(candidates) == 0 {
			continue
		}

		own := r.lattice.Candidates(constraints[:1])
		if len(candidates) > 1 && len(candidates) == len(own) {
			plan.Published[ref] = domain.KindAny
			continue
		}
		plan.Published[ref] = candidates[0]
	}
}

// fail записывает ошибку задачи, если у неё ещё нет ошибки.
func (p *Plan) fail(job *domain.Job, port, message string, err error) {
	p.failWith(job, &JobError{Port: port, Message: message, Err: err})
}

// failWith записывает готовую ошибку задачи, если у неё ещё нет ошибки.
func (p *Plan) failWith(job *domain.Job, jerr *JobError) {
	if _, exists := p.JobErrors[job.ID]; exists {
		return
	}
	jerr.JobID = job.ID
	jerr.Task = job.Task
	p.JobErrors[job.ID] = jerr
}

// Interface выводит порты самого workflow, чтобы его можно было
// использовать как объект задачи.
//
// Входы — имена внешних объектов, на которые ссылаются задачи. Виды входа —
// пересечение ограничений всех потребителей. AcceptsBatch и
// AcceptsEmptyBatch — логическое И. Вход необязателен, только если
// необязательны все потребители. Выходы — заявленные выходы workflow;
// главный выход называется "main".
func (r *Resolver) Interface(wf *domain.Workflow) (domain.Ports, *Plan, error) {
	plan, err := r.resolve(wf, nil, false)
	if err != nil {
		return domain.Ports{}, nil, err
	}

	var ports domain.Ports

	names := make([]string, 0, len(plan.externalUsers))
	for name := range plan.externalUsers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		users := plan.externalUsers[name]
		in := domain.InputPort{
			Name:              name,
			AcceptsBatch:      true,
			AcceptsEmptyBatch: true,
			Optional:          true,
		}

		constraints := make([]domain.KindSet, 0, len(users))
		for _, u := range users {
			p, _ := plan.Ports[u.JobID].Input(u.Port)
			constraints = append(constraints, p.Kinds)
			in.AcceptsBatch = in.AcceptsBatch && p.AcceptsBatch
			in.AcceptsEmptyBatch = in.AcceptsEmptyBatch && p.AcceptsEmptyBatch
			in.Optional = in.Optional && p.Optional
		}

		kinds := r.lattice.Candidates(constraints)
		if len(kinds) == 0 {
			return domain.Ports{}, nil, fmt.Errorf("%w: Input %s: no solution to satisfy all users", ErrNoCommonKindSolution, name)
		}
		in.Kinds = kinds
		ports.Inputs = append(ports.Inputs, in)
	}

	addOutput := func(name string, ref domain.OutputRef) {
		out := domain.OutputPort{Name: name, Kinds: domain.KindSet{domain.KindAny}}
		if producer, ok := plan.Ports[ref.JobID]; ok {
			if p, ok := producer.Output(ref.Port); ok {
				out.Batch = p.Batch
				out.Kinds = p.Kinds
			}
		}
		if k, ok := plan.Published[ref]; ok && !k.IsWildcard() {
			out.Kinds = domain.KindSet{k}
		}
		ports.Outputs = append(ports.Outputs, out)
	}

	if plan.Claims.Main != nil {
		addOutput(MainOutputPort, *plan.Claims.Main)
	}
	for _, name := range plan.Claims.Names() {
		if name == MainOutputPort && plan.Claims.Main != nil {
			return domain.Ports{}, nil, &DuplicateOutputError{Name: name, First: plan.Claims.Main.JobID, Second: plan.Claims.Named[name].JobID}
		}
		addOutput(name, plan.Claims.Named[name])
	}

	return ports, plan, nil
}

// MainOutputPort — имя выхода, под которым вложенный workflow
// публикует свой главный выход.
const MainOutputPort = "main"
