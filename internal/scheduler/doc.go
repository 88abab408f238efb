// Package scheduler повторно запускает workflow по cron-расписанию.
//
// Структура:
//   - scheduler.go — цикл запусков (Run, Tick)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Schedule: domain.Schedule{CronExpr: "*/5 * * * *", DefinitionPath: "wf.yaml"},
//	    Store:    reportRepo, // опционально
//	    Events:   publisher,  // опционально
//	    Logger:   logger,
//	})
//	if err != nil {
//	    return err
//	}
//	return sched.Run(ctx)
package scheduler
