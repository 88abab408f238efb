package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Textflow/internal/domain"
)

func TestIsCompatible(t *testing.T) {
	text := domain.NewText("a", "x")
	tree := domain.NewTree("b", map[string]any{})

	tests := []struct {
		name     string
		value    domain.Value
		port     domain.InputPort
		expected bool
	}{
		{"single matching kind", domain.Single(text), domain.InputPort{Name: "in", Kinds: domain.KindSet{domain.KindText}}, true},
		{"single wrong kind", domain.Single(tree), domain.InputPort{Name: "in", Kinds: domain.KindSet{domain.KindText}}, false},
		{"wildcard port", domain.Single(tree), domain.InputPort{Name: "in"}, true},
		{"batch of one without batch", domain.Batch(text), domain.InputPort{Name: "in"}, true},
		{"batch without batch", domain.Batch(text, text), domain.InputPort{Name: "in"}, false},
		{"batch with batch", domain.Batch(text, text), domain.InputPort{Name: "in", AcceptsBatch: true}, true},
		{"empty batch rejected", domain.Batch(), domain.InputPort{Name: "in", AcceptsBatch: true}, false},
		{"empty batch accepted", domain.Batch(), domain.InputPort{Name: "in", AcceptsEmptyBatch: true}, true},
		{"mixed batch", domain.Batch(text, tree), domain.InputPort{Name: "in", Kinds: domain.KindSet{domain.KindText}, AcceptsBatch: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCompatible(tt.value, tt.port); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCheckInput_Errors(t *testing.T) {
	text := domain.NewText("a", "x")

	jerr := CheckInput(domain.Batch(text, text), domain.InputPort{Name: "in"})
	if jerr == nil || !errors.Is(jerr, ErrBatchCardinalityMismatch) {
		t.Fatalf("expected ErrBatchCardinalityMismatch, got %v", jerr)
	}
	if jerr.Message != "Input in: Temporary output is a batch but the input does not accept batch." {
		t.Errorf("unexpected message: %s", jerr.Message)
	}

	jerr = CheckInput(domain.Single(text), domain.InputPort{Name: "in", Kinds: domain.KindSet{domain.KindMIME}})
	if jerr == nil || !errors.Is(jerr, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", jerr)
	}
	if jerr.Object != "a" {
		t.Errorf("expected object a, got %s", jerr.Object)
	}
}

func TestCheckOutput(t *testing.T) {
	text := domain.NewText("a", "x")
	port := domain.OutputPort{Name: "out", Kinds: domain.KindSet{domain.KindText, domain.KindTree}}

	if jerr := CheckOutput(domain.Single(text), port, domain.KindText); jerr != nil {
		t.Errorf("unexpected error: %v", jerr)
	}
	if jerr := CheckOutput(domain.Single(text), port, domain.KindAny); jerr != nil {
		t.Errorf("unexpected error with wildcard: %v", jerr)
	}

	// Вид не совпадает с опубликованным
	jerr := CheckOutput(domain.Single(text), port, domain.KindTree)
	if jerr == nil || !errors.Is(jerr, ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch, got %v", jerr)
	}

	// Пакет в не-пакетный выход
	jerr = CheckOutput(domain.Batch(text, text), port, domain.KindText)
	if jerr == nil || !errors.Is(jerr, ErrBatchCardinalityMismatch) {
		t.Errorf("expected ErrBatchCardinalityMismatch, got %v", jerr)
	}

	// Пакетный выход принимает пакет
	port.Batch = true
	if jerr := CheckOutput(domain.Batch(text, text), port, domain.KindText); jerr != nil {
		t.Errorf("unexpected error: %v", jerr)
	}

	// nil объект
	jerr = CheckOutput(domain.Value{Objects: []*domain.DataObject{nil}}, port, domain.KindText)
	if jerr == nil || !errors.Is(jerr, ErrMissingOutput) {
		t.Errorf("expected ErrMissingOutput, got %v", jerr)
	}
}
