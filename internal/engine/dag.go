package engine

import (
	"container/heap"
	"sort"

	"github.com/shaiso/Textflow/internal/domain"
)

// Node — узел в DAG.
type Node struct {
	// Job — определение задачи из workflow.
	Job *domain.Job

	// ID — идентификатор узла (совпадает с Job.ID).
	ID string

	// Index — позиция задачи в порядке объявления.
	Index int

	// InDegree — количество входящих рёбер (зависимостей).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел, по порядку объявления.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла, по порядку объявления.
	Dependents []*Node
}

// DAG — направленный ациклический граф задач workflow.
type DAG struct {
	// Nodes — все узлы графа (jobID → Node).
	Nodes map[string]*Node

	// Ordered — узлы в порядке объявления.
	Ordered []*Node

	// RootNodes — узлы без зависимостей (точки входа).
	RootNodes []*Node

	// Order — топологически отсортированный список узлов.
	// Среди независимых узлов сохраняется порядок объявления.
	Order []*Node
}

// BuildDAG строит DAG из workflow.
//
// Рёбра строятся по источникам JobOutput. Ссылки на несуществующие задачи
// пропускаются: их диагностирует разрешение привязок. Ссылка задачи на
// саму себя — цикл.
func BuildDAG(wf *domain.Workflow) (*DAG, error) {
	dag := &DAG{
		Nodes:   make(map[string]*Node, len(wf.Jobs)),
		Ordered: make([]*Node, 0, len(wf.Jobs)),
	}

	// Первый проход: создаём все узлы
	for i := range wf.Jobs {
		dag.addNode(&wf.Jobs[i], i)
	}

	// Второй проход: связываем узлы по источникам
	for _, node := range dag.Ordered {
		dag.linkDependencies(node)
	}

	// Находим корневые узлы
	dag.findRootNodes()

	// Проверяем на циклы и строим топологический порядок
	order, err := dag.topologicalSort()
	if err != nil {
		return nil, err
	}
	dag.Order = order

	return dag, nil
}

// addNode добавляет узел в DAG.
func (d *DAG) addNode(job *domain.Job, index int) {
	node := &Node{
		Job:        job,
		ID:         job.ID,
		Index:      index,
		DependsOn:  make([]*Node, 0),
		Dependents: make([]*Node, 0),
	}
	d.Nodes[job.ID] = node
	d.Ordered = append(d.Ordered, node)
}

// linkDependencies связывает узел с задачами-производителями его входов.
func (d *DAG) linkDependencies(node *Node) {
	// Имена портов сортируем, чтобы порядок рёбер не зависел от map
	ports := make([]string, 0, len(node.Job.Inputs))
	for port := range node.Job.Inputs {
		ports = append(ports, port)
	}
	sort.Strings(ports)

	for _, port := range ports {
		src := node.Job.Inputs[port]
		if !src.IsJob() {
			continue
		}
		producer, exists := d.Nodes[src.JobID]
		if !exists {
			continue
		}
		d.addEdge(producer, node)
	}

	sortNodes(node.DependsOn)
}

// addEdge добавляет ребро между узлами.
// Дополнительно проверяет на дубликаты, чтобы избежать двойного учета InDegree.
func (d *DAG) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.ID == from.ID {
			return // уже связаны
		}
	}
	from.Dependents = append(from.Dependents, to)
	sortNodes(from.Dependents)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// findRootNodes находит узлы без входящих рёбер.
func (d *DAG) findRootNodes() {
	d.RootNodes = make([]*Node, 0)
	for _, node := range d.Ordered {
		if node.InDegree == 0 {
			d.RootNodes = append(d.RootNodes, node)
		}
	}
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
// Очередь — min-heap по индексу объявления, поэтому порядок детерминирован.
// Возвращает *CycleError, если обнаружен цикл.
func (d *DAG) topologicalSort() ([]*Node, error) {
	// Копируем inDegree, чтобы не модифицировать оригинал
	inDegree := make(map[string]int, len(d.Nodes))
	for id, node := range d.Nodes {
		inDegree[id] = node.InDegree
	}

	queue := &nodeHeap{}
	for _, node := range d.RootNodes {
		heap.Push(queue, node)
	}

	order := make([]*Node, 0, len(d.Nodes))

	for queue.Len() > 0 {
		node := heap.Pop(queue).(*Node)
		order = append(order, node)

		// Уменьшаем inDegree у зависимых узлов
		for _, dependent := range node.Dependents {
			inDegree[dependent.ID]--
			if inDegree[dependent.ID] == 0 {
				heap.Push(queue, dependent)
			}
		}
	}

	// Если не все узлы обработаны — есть цикл. Задачи ниже цикла тоже
	// остаются необработанными, но в ошибку попадают только узлы цикла
	if len(order) != len(d.Nodes) {
		blocked := make(map[string]bool, len(d.Nodes)-len(order))
		for _, node := range d.Ordered {
			if inDegree[node.ID] > 0 {
				blocked[node.ID] = true
			}
		}

		cycle := make([]string, 0, len(blocked))
		for _, node := range d.Ordered {
			if blocked[node.ID] && onCycle(node, blocked) {
				cycle = append(cycle, node.ID)
			}
		}
		return nil, &CycleError{Jobs: cycle}
	}

	return order, nil
}

// onCycle проверяет, достижим ли start из самого себя по зависимым
// узлам внутри blocked.
func onCycle(start *Node, blocked map[string]bool) bool {
	seen := make(map[string]bool)
	stack := append([]*Node(nil), start.Dependents...)

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.ID == start.ID {
			return true
		}
		if seen[node.ID] || !blocked[node.ID] {
			continue
		}
		seen[node.ID] = true
		stack = append(stack, node.Dependents...)
	}
	return false
}

// GetReadyNodes возвращает узлы, готовые к выполнению, по порядку объявления.
//
// Узел готов, если его статус PENDING и все зависимости SUCCEEDED.
// status — текущий статус задачи по ID.
func (d *DAG) GetReadyNodes(status func(id string) domain.JobStatus) []*Node {
	ready := make([]*Node, 0)

	for _, node := range d.Ordered {
		if status(node.ID) != domain.JobStatusPending {
			continue
		}

		allDepsSucceeded := true
		for _, dep := range node.DependsOn {
			if status(dep.ID) != domain.JobStatusSucceeded {
				allDepsSucceeded = false
				break
			}
		}

		if allDepsSucceeded {
			ready = append(ready, node)
		}
	}

	return ready
}

// Downstream возвращает все транзитивно зависимые узлы по порядку объявления.
func (d *DAG) Downstream(id string) []*Node {
	start, ok := d.Nodes[id]
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	queue := &nodeHeap{}
	for _, dep := range start.Dependents {
		heap.Push(queue, dep)
	}

	result := make([]*Node, 0)
	for queue.Len() > 0 {
		node := heap.Pop(queue).(*Node)
		if seen[node.ID] {
			continue
		}
		seen[node.ID] = true
		result = append(result, node)
		for _, dep := range node.Dependents {
			if !seen[dep.ID] {
				heap.Push(queue, dep)
			}
		}
	}

	sortNodes(result)
	return result
}

// GetNode возвращает узел по ID.
func (d *DAG) GetNode(id string) *Node {
	return d.Nodes[id]
}

// Size возвращает количество узлов в DAG.
func (d *DAG) Size() int {
	return len(d.Nodes)
}

// IsComplete проверяет, все ли узлы в финальном статусе.
func (d *DAG) IsComplete(status func(id string) domain.JobStatus) bool {
	for _, node := range d.Ordered {
		if !status(node.ID).IsTerminal() {
			return false
		}
	}
	return true
}

// sortNodes сортирует узлы по индексу объявления.
func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Index < nodes[j].Index })
}

// nodeHeap — min-heap узлов по индексу объявления.
type nodeHeap []*Node

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].Index < h[j].Index }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)        { *h = append(*h, x.(*Node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
