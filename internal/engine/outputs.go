package engine

import (
	"sort"

	"github.com/shaiso/Textflow/internal/domain"
)

// ClaimTable — заявки задач на выходы workflow.
type ClaimTable struct {
	// Main — выход, заявленный главным; nil, если главного выхода нет.
	Main *domain.OutputRef

	// Named — именованные выходы workflow: имя → выход задачи.
	Named map[string]domain.OutputRef

	// claimed — все заявленные выходы задач.
	claimed map[domain.OutputRef]bool
}

// CollectClaims собирает заявки на выходы workflow.
//
// Задачи обходятся в порядке объявления, порты — в лексическом порядке.
// Первая повторная заявка возвращается как *DuplicateOutputError с двумя
// первыми заявителями.
func CollectClaims(wf *domain.Workflow) (*ClaimTable, error) {
	table := &ClaimTable{
		Named:   make(map[string]domain.OutputRef),
		claimed: make(map[domain.OutputRef]bool),
	}

	for i := range wf.Jobs {
		job := &wf.Jobs[i]

		for _, port := range sortedKeys(job.Outputs) {
			claim := job.Outputs[port]
			ref := domain.OutputRef{JobID: job.ID, Port: port}

			if claim.Main {
				if table.Main != nil {
					return nil, &DuplicateOutputError{First: table.Main.JobID, Second: job.ID}
				}
				table.Main = &ref
			} else {
				if first, exists := table.Named[claim.Name]; exists {
					return nil, &DuplicateOutputError{Name: claim.Name, First: first.JobID, Second: job.ID}
				}
				table.Named[claim.Name] = ref
			}

			table.claimed[ref] = true
		}
	}

	return table, nil
}

// IsClaimed проверяет, заявлен ли выход задачи как выход workflow.
func (t *ClaimTable) IsClaimed(ref domain.OutputRef) bool {
	return t.claimed[ref]
}

// Names возвращает имена именованных выходов в лексическом порядке.
func (t *ClaimTable) Names() []string {
	names := make([]string, 0, len(t.Named))
	for name := range t.Named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Harvest собирает выходы workflow после выполнения.
//
// produced возвращает опубликованное значение выхода; значение есть только
// у успешно выполненных задач. Выходы упавших или пропущенных задач
// отсутствуют в результате.
func (t *ClaimTable) Harvest(produced func(ref domain.OutputRef) (domain.Value, bool)) (*domain.Value, map[string]domain.Value) {
	var main *domain.Value
	if t.Main != nil {
		if v, ok := produced(*t.Main); ok {
			main = &v
		}
	}

	named := make(map[string]domain.Value, len(t.Named))
	for _, name := range t.Names() {
		if v, ok := produced(t.Named[name]); ok {
			named[name] = v
		}
	}

	return main, named
}
