package definition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format — формат файла определения.
type Format string

// Поддерживаемые форматы.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHCL  Format = "hcl"
)

// ParseFormat разбирает имя формата.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath определяет формат по расширению файла.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Document — определение workflow в том виде, в каком оно записано в файле.
type Document struct {
	// Name — имя workflow.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Externals — внешние объекты по имени.
	Externals map[string]ExternalSpec `yaml:"externals,omitempty" json:"externals,omitempty" validate:"dive"`

	// Tasks — объекты задач, объявленные в определении.
	Tasks map[string]TaskSpec `yaml:"tasks,omitempty" json:"tasks,omitempty" validate:"dive"`

	// Jobs — задачи в порядке объявления.
	Jobs []JobSpec `yaml:"jobs" json:"jobs" validate:"required,min=1,dive"`
}

// ExternalSpec — внешний объект. Задаётся ровно одно поле.
type ExternalSpec struct {
	// Text — текстовый объект.
	Text *string `yaml:"text,omitempty" json:"text,omitempty"`

	// Tree — структурированные данные.
	Tree any `yaml:"tree,omitempty" json:"tree,omitempty"`

	// Items — пакет текстовых объектов.
	Items []string `yaml:"items,omitempty" json:"items,omitempty"`

	// MIME — MIME-объект.
	MIME *MIMESpec `yaml:"mime,omitempty" json:"mime,omitempty"`

	// File — путь к файлу относительно определения. Текстовый файл
	// становится текстовым объектом, остальные — MIME-объектом.
	File string `yaml:"file,omitempty" json:"file,omitempty"`
}

// MIMESpec — содержимое MIME-объекта.
type MIMESpec struct {
	// ContentType — тип содержимого; пустой определяется по телу.
	ContentType string `yaml:"content_type,omitempty" json:"content_type,omitempty"`
	Body        string `yaml:"body" json:"body"`
}

// TaskSpec — объявление объекта задачи.
type TaskSpec struct {
	// Type — тип объекта (template, split, ..., workflow).
	Type string `yaml:"type" json:"type" validate:"required"`

	// Settings — настройки объекта для tasks.Factory.
	Settings map[string]any `yaml:"settings,omitempty" json:"settings,omitempty"`

	// Workflow — вложенное определение для типа workflow.
	Workflow *Document `yaml:"workflow,omitempty" json:"workflow,omitempty"`

	// Path — путь к файлу вложенного определения для типа workflow.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// JobSpec — задача workflow.
type JobSpec struct {
	ID   string `yaml:"id" json:"id" validate:"required"`
	Task string `yaml:"task" json:"task" validate:"required"`

	// Config — конфигурация задачи поверх настроек объекта.
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`

	// Inputs — привязки входов: "external:NAME" или "JOB.PORT".
	Inputs map[string]string `yaml:"inputs,omitempty" json:"inputs,omitempty"`

	// Outputs — заявки выходов: "main" или имя выхода workflow.
	Outputs map[string]string `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// Parse разбирает определение в заданном формате.
// filename используется только в сообщениях об ошибках HCL.
func Parse(data []byte, format Format, filename string) (*Document, error) {
	var doc Document

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: yaml: %v", ErrParse, err)
		}

	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: json: %v", ErrParse, err)
		}

	case FormatHCL:
		parsed, err := parseHCL(data, filename)
		if err != nil {
			return nil, err
		}
		doc = *parsed

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return &doc, nil
}
