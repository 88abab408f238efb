// Package engine содержит статическую часть движка выполнения workflow.
//
// Включает:
//   - validate.go — структурная валидация workflow
//   - dag.go      — построение и обход DAG задач
//   - lattice.go  — решётка видов объектов и вывод общего вида
//   - compat.go   — проверка совместимости значений с портами
//   - resolver.go — разрешение привязок входов, обратный индекс, Plan
//   - outputs.go  — заявки на выходы workflow и их сбор
//
// Engine ничего не выполняет: он отвечает на вопрос, можно ли выполнить
// workflow, в каком порядке и какие данные потекут между задачами.
// Выполнением занимается пакет orchestrator.
package engine
