package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/shaiso/Textflow/internal/domain"
)

// Ошибки шаблонов.
var (
	// ErrTemplateParse — ошибка разбора шаблона.
	ErrTemplateParse = errors.New("template parse error")

	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render error")
)

// Context — контекст для рендеринга шаблонов.
//
// Используется в Go templates для доступа к данным:
//   - {{ .Inputs.doc }}          — одиночный объект входа
//   - {{ range .Inputs.items }}  — пакет объектов входа
//   - {{ .Job }}                 — ID задачи
//   - {{ .Vars.name }}           — переменные из настроек
type Context struct {
	// Job — ID выполняемой задачи.
	Job string `json:"job"`

	// Inputs — данные входов: для одиночного объекта его нагрузка,
	// для пакета — слайс нагрузок.
	Inputs map[string]any `json:"inputs"`

	// Vars — переменные из настроек задачи.
	Vars map[string]any `json:"vars"`
}

// NewContext создаёт контекст шаблона из входов задачи.
func NewContext(jobID string, inputs map[string]domain.Value, vars map[string]any) *Context {
	if vars == nil {
		vars = make(map[string]any)
	}
	data := make(map[string]any, len(inputs))
	for name, v := range inputs {
		if v.IsMultiple() || v.IsEmpty() {
			items := make([]any, len(v.Objects))
			for i, obj := range v.Objects {
				items[i] = templateData(obj)
			}
			data[name] = items
			continue
		}
		data[name] = templateData(v.First())
	}
	return &Context{Job: jobID, Inputs: data, Vars: vars}
}

// templateData возвращает нагрузку объекта в виде, удобном для шаблона.
func templateData(obj *domain.DataObject) any {
	if obj == nil {
		return nil
	}
	if bundle, ok := obj.Data.(*domain.MIMEBundle); ok {
		return map[string]any{
			"content_type": bundle.ContentType,
			"body":         string(bundle.Body),
		}
	}
	return obj.Data
}

// templateFuncs — функции sprig плюс функции, специфичные для textflow.
func templateFuncs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	// lines — разбивает текст на строки без завершающей пустой
	funcs["lines"] = func(s string) []string {
		return strings.Split(strings.TrimRight(s, "\n"), "\n")
	}
	return funcs
}

// Render рендерит строковый шаблон с контекстом.
//
// Шаблон может содержать Go template выражения и функции sprig:
//
//	{{ .Inputs.doc | upper }}
//	{{ range .Inputs.items }}- {{ . }}{{ end }}
//	{{ .Vars.title | default "untitled" }}
func Render(tmpl string, ctx *Context) (string, error) {
	// Проверяем, содержит ли строка шаблонные выражения
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Option("missingkey=error").Funcs(templateFuncs()).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}

	return buf.String(), nil
}

// RenderValue рендерит произвольное значение.
// Рекурсивно обрабатывает map и slice.
func RenderValue(value any, ctx *Context) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case string:
		return Render(v, ctx)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			rendered, err := RenderValue(val, ctx)
			if err != nil {
				return nil, err
			}
			result[key] = rendered
		}
		return result, nil

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			rendered, err := RenderValue(val, ctx)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	case []string:
		result := make([]string, len(v))
		for i, val := range v {
			rendered, err := Render(val, ctx)
			if err != nil {
				return nil, err
			}
			result[i] = rendered
		}
		return result, nil

	default:
		// Для остальных типов (int, float, bool) возвращаем как есть
		return value, nil
	}
}

// TemplateSettings — настройки объекта задачи template.
type TemplateSettings struct {
	// Template — шаблон текстового выхода out.
	Template string `mapstructure:"template"`

	// Fields — шаблоны полей выхода-дерева fields.
	Fields map[string]any `mapstructure:"fields"`

	// Inputs — имена входов. По умолчанию один вход "in".
	Inputs []string `mapstructure:"inputs" validate:"dive,required"`

	// Vars — переменные, доступные как .Vars.
	Vars map[string]any `mapstructure:"vars"`
}

// TemplateTask — рендеринг текста через Go templates и sprig.
//
// Настройки:
//
//	{
//	    "template": "Hello, {{ .Inputs.in }}!",
//	    "fields": {"title": "{{ .Inputs.in | title }}"},
//	    "inputs": ["in"],
//	    "vars": {"sep": ", "}
//	}
//
// Выходы: out (text) и, если заданы fields, fields (tree).
// Все входы принимают любой вид и пакеты.
type TemplateTask struct {
	settings TemplateSettings
}

// NewTemplateTask создаёт новый TemplateTask.
func NewTemplateTask(s TemplateSettings) *TemplateTask {
	return &TemplateTask{settings: s}
}

// Type возвращает тип объекта задачи.
func (t *TemplateTask) Type() string {
	return TypeTemplate
}

// resolve накладывает конфигурацию задачи на настройки объекта.
func (t *TemplateTask) resolve(config map[string]any) (TemplateSettings, error) {
	s := t.settings
	s.Fields = maps.Clone(s.Fields)
	s.Vars = maps.Clone(s.Vars)
	s.Inputs = slices.Clone(s.Inputs)
	if len(config) > 0 {
		if err := DecodeSettings(nil, config, &s); err != nil {
			return s, err
		}
	}
	if s.Template == "" && len(s.Fields) == 0 {
		return s, fmt.Errorf("%w: %s: template or fields required", ErrInvalidConfig, TypeTemplate)
	}
	if len(s.Inputs) == 0 {
		s.Inputs = []string{"in"}
	}
	return s, nil
}

// Ports возвращает порты задачи.
func (t *TemplateTask) Ports(config map[string]any) (domain.Ports, error) {
	s, err := t.resolve(config)
	if err != nil {
		return domain.Ports{}, err
	}

	names := slices.Clone(s.Inputs)
	sort.Strings(names)

	var ports domain.Ports
	for _, name := range names {
		ports.Inputs = append(ports.Inputs, domain.InputPort{
			Name:              name,
			AcceptsBatch:      true,
			AcceptsEmptyBatch: true,
		})
	}
	if s.Template != "" {
		ports.Outputs = append(ports.Outputs, domain.OutputPort{Name: "out", Kinds: domain.KindSet{domain.KindText}})
	}
	if len(s.Fields) > 0 {
		ports.Outputs = append(ports.Outputs, domain.OutputPort{Name: "fields", Kinds: domain.KindSet{domain.KindTree}})
	}
	return ports, nil
}

// Execute рендерит шаблоны.
func (t *TemplateTask) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	s, err := t.resolve(req.Config)
	if err != nil {
		return nil, err
	}

	tmplCtx := NewContext(req.JobID, req.Inputs, s.Vars)
	resp := NewResponse(nil)

	if s.Template != "" {
		text, err := Render(s.Template, tmplCtx)
		if err != nil {
			return nil, err
		}
		resp.Outputs["out"] = domain.Single(domain.NewText(req.JobID+".out", text))
	}

	if len(s.Fields) > 0 {
		fields, err := RenderValue(s.Fields, tmplCtx)
		if err != nil {
			return nil, fmt.Errorf("fields: %w", err)
		}
		resp.Outputs["fields"] = domain.Single(domain.NewTree(req.JobID+".fields", fields))
	}

	return resp, nil
}
