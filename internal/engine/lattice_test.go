package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Textflow/internal/domain"
)

func TestResolveCommonKind_SingleConstraint(t *testing.T) {
	l := DefaultLattice()

	kind, err := l.ResolveCommonKind([]domain.KindSet{{domain.KindText}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != domain.KindText {
		t.Errorf("expected text, got %s", kind)
	}
}

func TestResolveCommonKind_Intersection(t *testing.T) {
	l := DefaultLattice()

	// {A, B} и {B, C} → B
	kind, err := l.ResolveCommonKind([]domain.KindSet{
		{domain.KindTree, domain.KindText},
		{domain.KindText, domain.KindMIME},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != domain.KindText {
		t.Errorf("expected text, got %s", kind)
	}
}

func TestResolveCommonKind_NoSolution(t *testing.T) {
	l := DefaultLattice()

	_, err := l.ResolveCommonKind([]domain.KindSet{
		{domain.KindTree},
		{domain.KindMIME},
	})
	if !errors.Is(err, ErrNoSolution) {
		t.Errorf("expected ErrNoSolution, got %v", err)
	}
}

func TestResolveCommonKind_SpecificityNotDeclarationOrder(t *testing.T) {
	l := DefaultLattice()

	// Оба порядка объявления дают один результат
	first, err := l.ResolveCommonKind([]domain.KindSet{{domain.KindMIME, domain.KindText, domain.KindTree}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := l.ResolveCommonKind([]domain.KindSet{{domain.KindTree, domain.KindText, domain.KindMIME}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != domain.KindTree || second != domain.KindTree {
		t.Errorf("expected tree for both orders, got %s and %s", first, second)
	}
}

func TestResolveCommonKind_Wildcard(t *testing.T) {
	l := DefaultLattice()

	kind, err := l.ResolveCommonKind([]domain.KindSet{{domain.KindAny}, nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != domain.KindAny {
		t.Errorf("expected any when nothing restricts, got %s", kind)
	}

	kind, err = l.ResolveCommonKind([]domain.KindSet{{domain.KindAny}, {domain.KindMIME}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != domain.KindMIME {
		t.Errorf("wildcard should not narrow, expected mime, got %s", kind)
	}
}

func TestLattice_UnknownKinds(t *testing.T) {
	l := DefaultLattice()

	// Неизвестные виды идут после известных, между собой — лексически
	kind, err := l.ResolveCommonKind([]domain.KindSet{{"zeta", "alpha", domain.KindNone}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != domain.KindNone {
		t.Errorf("expected none, got %s", kind)
	}

	kind, err = l.ResolveCommonKind([]domain.KindSet{{"zeta", "alpha"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != "alpha" {
		t.Errorf("expected alpha, got %s", kind)
	}

	l.Register("zeta")
	kind, _ = l.ResolveCommonKind([]domain.KindSet{{"zeta", "alpha"}})
	if kind != "zeta" {
		t.Errorf("registered kind should outrank unknown ones, got %s", kind)
	}
	if !l.Known("zeta") || l.Known("alpha") {
		t.Error("Known should reflect registration")
	}
}

func TestLattice_Intersects(t *testing.T) {
	l := DefaultLattice()

	if !l.Intersects(domain.KindSet{domain.KindAny}, domain.KindSet{domain.KindText}) {
		t.Error("wildcard intersects everything")
	}
	if l.Intersects(domain.KindSet{domain.KindTree}, domain.KindSet{domain.KindText}) {
		t.Error("tree and text do not intersect")
	}
}
