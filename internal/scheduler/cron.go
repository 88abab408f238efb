package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Textflow/internal/domain"
)

// ErrInvalidSchedule — расписание не может быть использовано.
var ErrInvalidSchedule = errors.New("invalid schedule")

// cronParser — парсер cron-выражений из пяти полей.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextDue вычисляет следующее время запуска после from.
//
// Cron-выражение вычисляется в часовом поясе расписания, результат
// возвращается в UTC.
func NextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(sched.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timezone %q: %v", ErrInvalidSchedule, sched.Timezone, err)
	}

	schedule, err := cronParser.Parse(sched.CronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cron expression %q: %v", ErrInvalidSchedule, sched.CronExpr, err)
	}

	return schedule.Next(from.In(loc)).UTC(), nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	if _, err := cronParser.Parse(cronExpr); err != nil {
		return fmt.Errorf("%w: cron expression %q: %v", ErrInvalidSchedule, cronExpr, err)
	}
	return nil
}

// Validate проверяет расписание целиком.
func Validate(sched *domain.Schedule) error {
	if sched.DefinitionPath == "" {
		return fmt.Errorf("%w: definition path is required", ErrInvalidSchedule)
	}
	_, err := NextDue(sched, time.Now())
	return err
}
