// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики runs и задач
//
// CLI и API используют единый формат логирования,
// API экспортирует метрики на /metrics endpoint.
package telemetry
