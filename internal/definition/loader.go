package definition

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/shaiso/Textflow/internal/domain"
	"github.com/shaiso/Textflow/internal/orchestrator"
	"github.com/shaiso/Textflow/internal/tasks"
)

// Definition — загруженное определение, готовое к выполнению.
type Definition struct {
	// Workflow — граф задач.
	Workflow *domain.Workflow

	// Externals — внешние объекты из определения.
	Externals domain.ObjectSet

	// Registry — встроенные объекты задач плюс объявленные в определении.
	Registry *tasks.Registry

	// Orchestrator — оркестратор, привязанный к Registry.
	Orchestrator *orchestrator.Orchestrator
}

// Runner возвращает Runner поверх оркестратора определения.
func (d *Definition) Runner(cfg orchestrator.RunnerConfig) *orchestrator.Runner {
	cfg.Orchestrator = d.Orchestrator
	return orchestrator.NewRunner(cfg)
}

// MergeExternals возвращает внешние объекты определения, перекрытые extra.
func (d *Definition) MergeExternals(extra domain.ObjectSet) domain.ObjectSet {
	merged := make(domain.ObjectSet, len(d.Externals)+len(extra))
	for name, v := range d.Externals {
		merged[name] = v
	}
	for name, v := range extra {
		merged[name] = v
	}
	return merged
}

// Loader строит Definition из файлов и документов.
type Loader struct {
	registry *tasks.Registry
	factory  *tasks.Factory
	orch     orchestrator.Config
	validate *validator.Validate
	files    files
}

// Config — конфигурация Loader.
type Config struct {
	// Registry — базовые объекты задач (default: tasks.DefaultRegistry).
	Registry *tasks.Registry

	// Factory — фабрика объектов задач (default: tasks.NewFactory).
	Factory *tasks.Factory

	// Orchestrator — настройки оркестратора; Catalog подставляется
	// для каждого определения.
	Orchestrator orchestrator.Config

	// RootDir — если задан, файлы внешних объектов и вложенных workflow
	// читаются только внутри него.
	RootDir string
}

// NewLoader создаёт новый Loader.
func NewLoader(cfg Config) *Loader {
	registry := cfg.Registry
	if registry == nil {
		registry = tasks.DefaultRegistry()
	}
	factory := cfg.Factory
	if factory == nil {
		factory = tasks.NewFactory()
	}
	return &Loader{
		registry: registry,
		factory:  factory,
		orch:     cfg.Orchestrator,
		validate: validator.New(),
		files:    files{root: rootDir(cfg.RootDir)},
	}
}

// Confined возвращает копию Loader, читающую файлы только внутри root.
func (l *Loader) Confined(root string) *Loader {
	c := *l
	c.files = files{root: rootDir(root)}
	return &c
}

// rootDir приводит корень к абсолютному пути.
func rootDir(root string) string {
	if root == "" {
		return ""
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}

// LoadFile загружает определение из файла; формат — по расширению.
func (l *Loader) LoadFile(path string) (*Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	doc, err := Parse(data, format, path)
	if err != nil {
		return nil, err
	}

	b := l.newBuild()
	wf := &domain.Workflow{}
	b.files[abs] = wf
	return b.finish(doc, wf, filepath.Dir(abs))
}

// Load строит Definition из данных. dir — каталог, относительно которого
// разрешаются пути к файлам в определении.
func (l *Loader) Load(data []byte, format Format, dir string) (*Definition, error) {
	doc, err := Parse(data, format, "definition."+string(format))
	if err != nil {
		return nil, err
	}
	return l.Build(doc, dir)
}

// Build строит Definition из разобранного документа.
func (l *Loader) Build(doc *Document, dir string) (*Definition, error) {
	return l.newBuild().finish(doc, &domain.Workflow{}, dir)
}

// build — состояние одной сборки определения.
type build struct {
	loader   *Loader
	registry *tasks.Registry
	orch     *orchestrator.Orchestrator

	// declared — объекты задач, объявленные в этой сборке.
	declared map[string]bool

	// files — workflow по абсолютному пути файла. Файл, который ещё
	// собирается, уже есть здесь: ссылка на него образует рекурсию,
	// которую обнаруживает WorkflowTask.
	files map[string]*domain.Workflow

	// nested — вложенные workflow в порядке регистрации.
	nested []string
}

func (l *Loader) newBuild() *build {
	registry := l.registry.Clone()
	cfg := l.orch
	cfg.Catalog = registry

	return &build{
		loader:   l,
		registry: registry,
		orch:     orchestrator.New(cfg),
		declared: make(map[string]bool),
		files:    make(map[string]*domain.Workflow),
	}
}

// finish собирает корневой документ и проверяет вложенные workflow.
func (b *build) finish(doc *Document, wf *domain.Workflow, dir string) (*Definition, error) {
	// 1. Граф и объекты задач
	if err := b.workflow(doc, wf, dir); err != nil {
		return nil, err
	}

	// 2. Внешние объекты корневого документа
	externals, err := buildExternals(b.loader.files, doc.Externals, dir)
	if err != nil {
		return nil, err
	}

	// 3. Рекурсия вложенных workflow обнаруживается до запуска
	for _, name := range b.nested {
		task, _ := b.registry.Get(name)
		if _, err := task.Ports(nil); errors.Is(err, orchestrator.ErrRecursiveWorkflow) {
			return nil, fmt.Errorf("%w: task %s: %w", ErrInvalidDefinition, name, err)
		}
	}

	return &Definition{
		Workflow:     wf,
		Externals:    externals,
		Registry:     b.registry,
		Orchestrator: b.orch,
	}, nil
}

// workflow проверяет документ, регистрирует его объекты задач
// и заполняет wf.
func (b *build) workflow(doc *Document, wf *domain.Workflow, dir string) error {
	if err := b.loader.validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	// Объекты задач в лексическом порядке имён
	names := make([]string, 0, len(doc.Tasks))
	for name := range doc.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := b.task(name, doc.Tasks[name], dir); err != nil {
			return err
		}
	}

	wf.Name = doc.Name
	wf.Jobs = make([]domain.Job, 0, len(doc.Jobs))
	for _, spec := range doc.Jobs {
		job, err := buildJob(spec)
		if err != nil {
			return err
		}
		wf.Jobs = append(wf.Jobs, job)
	}
	return nil
}

// task регистрирует объект задачи.
func (b *build) task(name string, spec TaskSpec, dir string) error {
	if b.declared[name] {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}
	b.declared[name] = true

	if spec.Type != orchestrator.TypeWorkflow {
		task, err := b.loader.factory.Build(spec.Type, spec.Settings)
		if err != nil {
			return fmt.Errorf("%w: task %s: %w", ErrInvalidDefinition, name, err)
		}
		b.registry.Register(name, task)
		return nil
	}

	wf, err := b.nestedWorkflow(name, spec, dir)
	if err != nil {
		return err
	}
	b.registry.Register(name, orchestrator.NewWorkflowTask(wf, b.orch))
	b.nested = append(b.nested, name)
	return nil
}

// nestedWorkflow собирает вложенный workflow из документа или файла.
func (b *build) nestedWorkflow(name string, spec TaskSpec, dir string) (*domain.Workflow, error) {
	switch {
	case spec.Workflow != nil && spec.Path != "":
		return nil, fmt.Errorf("%w: task %s: workflow and path are mutually exclusive", ErrInvalidDefinition, name)

	case spec.Workflow != nil:
		wf := &domain.Workflow{}
		if err := b.workflow(spec.Workflow, wf, dir); err != nil {
			return nil, fmt.Errorf("task %s: %w", name, err)
		}
		return wf, nil

	case spec.Path != "":
		path, err := b.loader.files.resolve(dir, spec.Path)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", name, err)
		}
		if wf, ok := b.files[path]; ok {
			return wf, nil
		}

		format, err := FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		data, err := b.loader.files.read(path)
		if err != nil {
			return nil, fmt.Errorf("task %s: read workflow: %w", name, err)
		}
		doc, err := Parse(data, format, path)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", name, err)
		}

		wf := &domain.Workflow{}
		b.files[path] = wf
		if err := b.workflow(doc, wf, filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("task %s: %w", name, err)
		}
		return wf, nil

	default:
		return nil, fmt.Errorf("%w: task %s: workflow task needs workflow or path", ErrInvalidDefinition, name)
	}
}

// buildJob преобразует JobSpec в domain.Job.
func buildJob(spec JobSpec) (domain.Job, error) {
	job := domain.Job{
		ID:     spec.ID,
		Task:   spec.Task,
		Config: spec.Config,
	}

	if len(spec.Inputs) > 0 {
		job.Inputs = make(map[string]domain.Source, len(spec.Inputs))
		for port, ref := range spec.Inputs {
			src, err := ParseSource(ref)
			if err != nil {
				return domain.Job{}, fmt.Errorf("job %s input %s: %w", spec.ID, port, err)
			}
			job.Inputs[port] = src
		}
	}

	if len(spec.Outputs) > 0 {
		job.Outputs = make(map[string]domain.OutputClaim, len(spec.Outputs))
		for port, claim := range spec.Outputs {
			if claim == "" {
				return domain.Job{}, fmt.Errorf("%w: job %s output %s has empty claim", ErrInvalidDefinition, spec.ID, port)
			}
			job.Outputs[port] = ParseClaim(claim)
		}
	}

	return job, nil
}

// buildExternals преобразует внешние объекты документа.
func buildExternals(f files, specs map[string]ExternalSpec, dir string) (domain.ObjectSet, error) {
	set := make(domain.ObjectSet, len(specs))
	for name, spec := range specs {
		v, err := buildExternal(f, name, spec, dir)
		if err != nil {
			return nil, err
		}
		set[name] = v
	}
	return set, nil
}

// BuildExternal строит значение внешнего объекта. Относительный путь
// file разрешается от dir.
func BuildExternal(name string, spec ExternalSpec, dir string) (domain.Value, error) {
	return buildExternal(files{}, name, spec, dir)
}

func buildExternal(f files, name string, spec ExternalSpec, dir string) (domain.Value, error) {
	set := 0
	for _, ok := range []bool{spec.Text != nil, spec.Tree != nil, spec.Items != nil, spec.MIME != nil, spec.File != ""} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return domain.Value{}, fmt.Errorf("%w: %s must set exactly one of text, tree, items, mime, file", ErrInvalidExternal, name)
	}

	switch {
	case spec.Text != nil:
		return domain.Single(domain.NewText(name, *spec.Text)), nil

	case spec.Tree != nil:
		return domain.Single(domain.NewTree(name, spec.Tree)), nil

	case spec.Items != nil:
		objs := make([]*domain.DataObject, len(spec.Items))
		for i, item := range spec.Items {
			objs[i] = domain.NewText(fmt.Sprintf("%s[%d]", name, i), item)
		}
		return domain.Batch(objs...), nil

	case spec.MIME != nil:
		return domain.Single(tasks.NewMIMEObject(name, spec.MIME.ContentType, []byte(spec.MIME.Body))), nil

	default:
		path, err := f.resolve(dir, spec.File)
		if err != nil {
			return domain.Value{}, fmt.Errorf("external %s: %w", name, err)
		}
		body, err := f.read(path)
		if err != nil {
			return domain.Value{}, fmt.Errorf("%w: %s: %v", ErrInvalidExternal, name, err)
		}
		return fileValue(name, body), nil
	}
}

// fileValue строит объект из содержимого файла. Текстовый файл становится
// текстовым объектом, остальные — MIME-объектом с определённым типом.
func fileValue(name string, body []byte) domain.Value {
	mt := mimetype.Detect(body)
	if mt.Is("text/plain") {
		return domain.Single(domain.NewText(name, string(body)))
	}
	return domain.Single(tasks.NewMIMEObject(name, mt.String(), body))
}
