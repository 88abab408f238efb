package definition

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclFile — верхний уровень HCL-определения.
type hclFile struct {
	Name      string         `hcl:"name"`
	Externals []*hclExternal `hcl:"external,block"`
	Tasks     []*hclTask     `hcl:"task,block"`
	Jobs      []*hclJob      `hcl:"job,block"`
}

type hclExternal struct {
	Name        string    `hcl:"name,label"`
	Text        *string   `hcl:"text,optional"`
	Tree        cty.Value `hcl:"tree,optional"`
	Items       []string  `hcl:"items,optional"`
	ContentType *string   `hcl:"content_type,optional"`
	Body        *string   `hcl:"body,optional"`
	File        string    `hcl:"file,optional"`
}

type hclTask struct {
	Name     string    `hcl:"name,label"`
	Type     string    `hcl:"type"`
	Settings cty.Value `hcl:"settings,optional"`
	Path     string    `hcl:"path,optional"`
}

type hclJob struct {
	ID      string            `hcl:"id,label"`
	Task    string            `hcl:"task"`
	Config  cty.Value         `hcl:"config,optional"`
	Inputs  map[string]string `hcl:"inputs,optional"`
	Outputs map[string]string `hcl:"outputs,optional"`
}

// parseHCL разбирает HCL-определение в Document.
//
// Вложенные workflow в HCL задаются только через path.
func parseHCL(data []byte, filename string) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: hcl %s: %v", ErrParse, filename, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("%w: hcl %s: %v", ErrParse, filename, diags)
	}

	doc := &Document{Name: parsed.Name}

	if len(parsed.Externals) > 0 {
		doc.Externals = make(map[string]ExternalSpec, len(parsed.Externals))
	}
	for _, ext := range parsed.Externals {
		tree, err := ctyToAny(ext.Tree)
		if err != nil {
			return nil, fmt.Errorf("%w: external %s: %v", ErrParse, ext.Name, err)
		}
		spec := ExternalSpec{Text: ext.Text, Tree: tree, Items: ext.Items, File: ext.File}
		if ext.Body != nil {
			spec.MIME = &MIMESpec{Body: *ext.Body}
			if ext.ContentType != nil {
				spec.MIME.ContentType = *ext.ContentType
			}
		}
		doc.Externals[ext.Name] = spec
	}

	if len(parsed.Tasks) > 0 {
		doc.Tasks = make(map[string]TaskSpec, len(parsed.Tasks))
	}
	for _, task := range parsed.Tasks {
		settings, err := ctyToMap(task.Settings)
		if err != nil {
			return nil, fmt.Errorf("%w: task %s settings: %v", ErrParse, task.Name, err)
		}
		doc.Tasks[task.Name] = TaskSpec{Type: task.Type, Settings: settings, Path: task.Path}
	}

	for _, job := range parsed.Jobs {
		config, err := ctyToMap(job.Config)
		if err != nil {
			return nil, fmt.Errorf("%w: job %s config: %v", ErrParse, job.ID, err)
		}
		doc.Jobs = append(doc.Jobs, JobSpec{
			ID:      job.ID,
			Task:    job.Task,
			Config:  config,
			Inputs:  job.Inputs,
			Outputs: job.Outputs,
		})
	}

	return doc, nil
}

// ctyToMap преобразует объект HCL в map.
func ctyToMap(val cty.Value) (map[string]any, error) {
	v, err := ctyToAny(val)
	if err != nil || v == nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %s", val.Type().FriendlyName())
	}
	return m, nil
}

// ctyToAny преобразует значение HCL в обычные Go-значения.
// Целые числа становятся int, остальные числа — float64.
func ctyToAny(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil

	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty == cty.Bool:
		return val.True(), nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			converted, err := ctyToAny(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = converted
		}
		return out, nil

	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			converted, err := ctyToAny(v)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type: %s", ty.FriendlyName())
	}
}
