package domain

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrInvalidPorts — объявление портов задачи некорректно.
var ErrInvalidPorts = errors.New("invalid port declaration")

// InputPort — описание входного порта задачи.
type InputPort struct {
	// Name — имя порта, уникальное среди входов задачи.
	Name string `json:"name"`

	// Kinds — допустимые виды объектов. Пустое или {any} — любой вид.
	Kinds KindSet `json:"kinds,omitempty"`

	// AcceptsBatch — порт принимает пакет из нескольких объектов.
	AcceptsBatch bool `json:"accepts_batch,omitempty"`

	// AcceptsEmptyBatch — порт принимает пустой пакет.
	AcceptsEmptyBatch bool `json:"accepts_empty_batch,omitempty"`

	// Optional — вход можно не привязывать.
	Optional bool `json:"optional,omitempty"`
}

// OutputPort — описание выходного порта задачи.
type OutputPort struct {
	// Name — имя порта, уникальное среди выходов задачи.
	Name string `json:"name"`

	// Kinds — виды, которые задача способна опубликовать на порту.
	// {any} — вид определяется потребителями.
	Kinds KindSet `json:"kinds,omitempty"`

	// Batch — порт может выдать пакет из нескольких объектов.
	Batch bool `json:"batch,omitempty"`

	// Mandatory — выход обязан быть использован (привязан или заявлен
	// как выход workflow). Необязательные выходы можно отбрасывать.
	Mandatory bool `json:"mandatory,omitempty"`
}

// Ports — полный набор портов задачи.
type Ports struct {
	Inputs  []InputPort  `json:"inputs"`
	Outputs []OutputPort `json:"outputs"`
}

// Input возвращает входной порт по имени.
func (p Ports) Input(name string) (InputPort, bool) {
	for _, in := range p.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return InputPort{}, false
}

// Output возвращает выходной порт по имени.
func (p Ports) Output(name string) (OutputPort, bool) {
	for _, out := range p.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return OutputPort{}, false
}

// SortedInputs возвращает входы в лексическом порядке имён.
func (p Ports) SortedInputs() []InputPort {
	inputs := slices.Clone(p.Inputs)
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Name < inputs[j].Name })
	return inputs
}

// SortedOutputs возвращает выходы в лексическом порядке имён.
func (p Ports) SortedOutputs() []OutputPort {
	outputs := slices.Clone(p.Outputs)
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Name < outputs[j].Name })
	return outputs
}

// Validate проверяет уникальность и непустоту имён портов.
func (p Ports) Validate() error {
	seen := make(map[string]bool, len(p.Inputs))
	for _, in := range p.Inputs {
		if in.Name == "" {
			return fmt.Errorf("%w: input with empty name", ErrInvalidPorts)
		}
		if seen[in.Name] {
			return fmt.Errorf("%w: duplicate input %q", ErrInvalidPorts, in.Name)
		}
		seen[in.Name] = true
	}

	seen = make(map[string]bool, len(p.Outputs))
	for _, out := range p.Outputs {
		if out.Name == "" {
			return fmt.Errorf("%w: output with empty name", ErrInvalidPorts)
		}
		if seen[out.Name] {
			return fmt.Errorf("%w: duplicate output %q", ErrInvalidPorts, out.Name)
		}
		seen[out.Name] = true
	}

	return nil
}
