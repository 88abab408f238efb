package engine

import (
	"errors"
	"sort"
	"sync"

	"github.com/shaiso/Textflow/internal/domain"
)

// ErrNoSolution — у набора ограничений нет общего вида.
var ErrNoSolution = errors.New("no kind satisfies all constraints")

// Lattice — решётка видов объектов данных.
//
// Хранит фиксированный порядок специфичности: при нескольких кандидатах
// выбирается вид с меньшим рангом. Неизвестные виды допустимы и
// ранжируются после известных в лексическом порядке.
type Lattice struct {
	mu    sync.RWMutex
	ranks map[domain.Kind]int
}

// NewLattice создаёт решётку с заданным порядком специфичности.
func NewLattice(order ...domain.Kind) *Lattice {
	l := &Lattice{ranks: make(map[domain.Kind]int, len(order))}
	for _, k := range order {
		l.Register(k)
	}
	return l
}

// DefaultLattice возвращает решётку со встроенными видами:
// tree, text, mime, none.
func DefaultLattice() *Lattice {
	return NewLattice(domain.KnownKinds()...)
}

// Register добавляет вид в конец порядка специфичности.
// Повторная регистрация и wildcard игнорируются.
func (l *Lattice) Register(k domain.Kind) {
	if k.IsWildcard() || k == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.ranks[k]; !exists {
		l.ranks[k] = len(l.ranks)
	}
}

// Known проверяет, зарегистрирован ли вид.
func (l *Lattice) Known(k domain.Kind) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ranks[k]
	return ok
}

// Less сравнивает виды по специфичности.
func (l *Lattice) Less(a, b domain.Kind) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ra, okA := l.ranks[a]
	rb, okB := l.ranks[b]
	switch {
	case okA && okB:
		return ra < rb
	case okA:
		return true
	case okB:
		return false
	default:
		return a < b
	}
}

// Accepts проверяет, удовлетворяет ли вид ограничению.
func (l *Lattice) Accepts(constraint domain.KindSet, k domain.Kind) bool {
	return constraint.Accepts(k)
}

// Candidates возвращает пересечение ограничений в порядке специфичности.
//
// Ограничения-wildcard ничего не сужают. Если все ограничения wildcard,
// возвращается {any}. Пустой результат — общего вида нет.
func (l *Lattice) Candidates(constraints []domain.KindSet) []domain.Kind {
	var (
		candidates map[domain.Kind]bool
		restricted bool
	)

	for _, c := range constraints {
		if c.IsWildcard() {
			continue
		}

		current := make(map[domain.Kind]bool, len(c))
		for _, k := range c {
			if !restricted || candidates[k] {
				current[k] = true
			}
		}
		candidates = current
		restricted = true
	}

	if !restricted {
		return []domain.Kind{domain.KindAny}
	}

	result := make([]domain.Kind, 0, len(candidates))
	for k := range candidates {
		result = append(result, k)
	}
	sort.Slice(result, func(i, j int) bool { return l.Less(result[i], result[j]) })
	return result
}

// ResolveCommonKind выбирает один вид, удовлетворяющий всем ограничениям.
//
// Среди нескольких кандидатов выбирается самый специфичный по
// фиксированному порядку решётки, а не по порядку объявления.
// Результат KindAny означает, что ограничений нет.
func (l *Lattice) ResolveCommonKind(constraints []domain.KindSet) (domain.Kind, error) {
	candidates := l.Candidates(constraints)
	if len(candidates) == 0 {
		return "", ErrNoSolution
	}
	return candidates[0], nil
}

// Intersects проверяет, что у двух ограничений есть общий вид.
func (l *Lattice) Intersects(a, b domain.KindSet) bool {
	return len(l.Candidates([]domain.KindSet{a, b})) > 0
}
