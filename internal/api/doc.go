// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go     — Handler с зависимостями (загрузчик, хранилище, события)
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — middleware (logging, recovery)
//   - response.go    — унифицированные JSON-ответы и обработка ошибок
//   - dto.go         — ответы API
//   - run_handler.go — обработчики для /runs и /healthz
//
// Маршруты:
//
//	POST /api/v1/runs                   — выполнить определение из тела запроса
//	GET  /api/v1/runs/{id}              — сохранённый run
//	GET  /api/v1/workflows/{name}/runs  — последние runs workflow
//	GET  /healthz
//	GET  /metrics
package api
