package definition

import "errors"

// Ошибки загрузки определений.
var (
	// ErrUnknownFormat — формат определения не поддерживается.
	ErrUnknownFormat = errors.New("unknown definition format")

	// ErrParse — определение не удалось разобрать.
	ErrParse = errors.New("parse definition")

	// ErrInvalidDefinition — определение не прошло проверку.
	ErrInvalidDefinition = errors.New("invalid definition")

	// ErrInvalidExternal — внешний объект задан некорректно.
	ErrInvalidExternal = errors.New("invalid external object")

	// ErrInvalidSource — ссылка на источник входа некорректна.
	ErrInvalidSource = errors.New("invalid source reference")

	// ErrDuplicateTask — объект задачи объявлен дважды.
	ErrDuplicateTask = errors.New("duplicate task object")

	// ErrPathOutsideRoot — путь к файлу выходит за корень загрузчика.
	ErrPathOutsideRoot = errors.New("path outside definition root")
)
