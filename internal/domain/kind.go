package domain

import "slices"

// Kind — тег вида объекта данных (дерево, текст, MIME-пакет и т.д.).
//
// Множество видов открытое: задачи могут объявлять собственные виды,
// движок сравнивает их только как строки.
type Kind string

const (
	// KindTree — иерархические данные (результат разбора).
	KindTree Kind = "tree"

	// KindText — простой текст.
	KindText Kind = "text"

	// KindMIME — MIME-пакет (тип содержимого + байты).
	KindMIME Kind = "mime"

	// KindNone — объект-маркер без полезной нагрузки.
	KindNone Kind = "none"

	// KindAny — wildcard: ограничение, которому удовлетворяет любой вид.
	KindAny Kind = "any"
)

// KnownKinds возвращает встроенные виды в порядке специфичности.
func KnownKinds() []Kind {
	return []Kind{KindTree, KindText, KindMIME, KindNone}
}

// IsWildcard проверяет, является ли вид wildcard.
func (k Kind) IsWildcard() bool {
	return k == KindAny
}

// String возвращает строковое представление Kind.
func (k Kind) String() string {
	return string(k)
}

// KindSet — ограничение на вид: множество допустимых видов.
// Пустое множество или множество с KindAny ничего не ограничивает.
type KindSet []Kind

// IsWildcard проверяет, что ограничение допускает любой вид.
func (s KindSet) IsWildcard() bool {
	return len(s) == 0 || slices.Contains(s, KindAny)
}

// Accepts проверяет, удовлетворяет ли вид ограничению.
func (s KindSet) Accepts(k Kind) bool {
	if s.IsWildcard() {
		return true
	}
	return slices.Contains(s, k)
}
