package domain

// Schedule — расписание повторного запуска workflow по cron.
type Schedule struct {
	// Name — имя расписания для логов.
	Name string `json:"name,omitempty"`

	// CronExpr — cron-выражение из пяти полей.
	// Формат: "минуты часы дни месяцы дни_недели"
	// Примеры:
	//   "0 9 * * *"     — каждый день в 9:00
	//   "*/5 * * * *"   — каждые 5 минут
	CronExpr string `json:"cron_expr"`

	// Timezone — часовой пояс для вычисления времени.
	// По умолчанию: "UTC".
	Timezone string `json:"timezone,omitempty"`

	// DefinitionPath — путь к файлу определения workflow.
	// Файл перечитывается перед каждым запуском.
	DefinitionPath string `json:"definition_path"`
}

// Location возвращает часовой пояс или "UTC" по умолчанию.
func (s *Schedule) Location() string {
	if s.Timezone == "" {
		return "UTC"
	}
	return s.Timezone
}
