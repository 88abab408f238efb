// Package cli реализует инструмент командной строки Textflow.
//
// # Обзор
//
// Локальные команды загружают определение workflow и выполняют его
// в процессе. Удалённые команды работают с HTTP API через Client.
//
// # Ключевые компоненты
//
// ## Env
//
// Общее окружение команд: настройки из internal/config, логгер и
// глобальные флаги (--json, --api-url, --log-level, --log-format).
// Флаги накладываются поверх переменных TEXTFLOW_*.
//
// ## Client
//
// HTTP-клиент для Textflow API. Инкапсулирует HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	run, err := client.SubmitRun(data, "yaml")
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: textflow run -f wf.yaml --json | jq .report
//
// ## Commands
//
//   - run, validate — локальное выполнение и проверка
//   - schedule      — повторные запуски по cron
//   - serve         — HTTP API
//   - remote        — run, show, list через API
//   - events        — чтение событий из RabbitMQ
package cli
