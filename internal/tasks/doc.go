// Package tasks содержит объекты задач: интерфейс Task, реестр именованных
// объектов и встроенные типы.
//
// # Интерфейс Task
//
//	type Task interface {
//	    Type() string
//	    Ports(config map[string]any) (domain.Ports, error)
//	    Execute(ctx context.Context, req *Request) (*Response, error)
//	}
//
// Ports описывает входы и выходы для конкретной конфигурации задачи.
// Execute получает значения входов по имени порта и возвращает значения
// выходов. Проверку видов и пакетов выполняет планировщик: задача может
// рассчитывать, что входы соответствуют её портам.
//
// # Registry и Factory
//
// Registry хранит именованные объекты задач и реализует engine.TaskCatalog.
// Factory создаёт объекты по типу из настроек (map → struct через
// mapstructure, проверка через validator):
//
//	factory := tasks.NewFactory()
//	task, err := factory.Build("split", map[string]any{"separator": ","})
//	registry.Register("csv-split", task)
//
// # Встроенные типы
//
//   - template    — Go templates + sprig, выход text (и tree для fields)
//   - split       — text → пакет text
//   - join        — пакет text → text
//   - yaml        — text → tree
//   - mime        — text → mime
//   - passthrough — вход на выход без изменений
//   - sleep       — задержка и принудительная ошибка
//
// Тип workflow (вложенный workflow) живёт в пакете orchestrator.
package tasks
