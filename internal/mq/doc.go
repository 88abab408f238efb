// Package mq публикует и потребляет события Textflow через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с брокером (reconnect, graceful shutdown)
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — сообщения и их публикация
//   - consumer.go   — потребление и разбор событий
//
// Типы сообщений:
//   - run.completed — run завершён (любой статус)
//   - job.failed    — задача run упала
//
// Публикация событий не влияет на результат run: отчёт уже построен
// к моменту отправки.
package mq
