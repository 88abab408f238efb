// Package orchestrator выполняет workflow.
//
// Orchestrator отвечает за:
//   - Разрешение привязок и отклонение задач с ошибками разрешения
//   - Запуск готовых задач в порядке объявления (последовательно или
//     пулом воркеров)
//   - Проверку входов и выходов каждой задачи по решётке видов
//   - Пропуск потомков упавших задач и отмену run через ctx
//   - Сборку детерминированного Report
//
// Runner поверх Orchestrator превращает Report в domain.RunRecord,
// сохраняет его и публикует события. WorkflowTask позволяет использовать
// workflow как объект задачи в другом workflow.
package orchestrator
