package domain

// DataObject — неизменяемый объект данных, который передаётся между задачами.
//
// После публикации объект только читается: несколько потребителей
// получают один и тот же указатель.
type DataObject struct {
	// Name — имя объекта (для внешних объектов — имя в наборе).
	Name string `json:"name"`

	// Kind — вид объекта.
	Kind Kind `json:"kind"`

	// Data — полезная нагрузка. Формат определяется видом:
	// string для text, map[string]any/[]any для tree, *MIMEBundle для mime.
	Data any `json:"data,omitempty"`
}

// MIMEBundle — полезная нагрузка объекта вида mime.
type MIMEBundle struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// NewText создаёт текстовый объект.
func NewText(name, text string) *DataObject {
	return &DataObject{Name: name, Kind: KindText, Data: text}
}

// NewTree создаёт объект-дерево.
func NewTree(name string, data any) *DataObject {
	return &DataObject{Name: name, Kind: KindTree, Data: data}
}

// Text возвращает текстовую нагрузку объекта или пустую строку.
func (o *DataObject) Text() string {
	if o == nil {
		return ""
	}
	if s, ok := o.Data.(string); ok {
		return s
	}
	return ""
}

// Value — значение на порту: одиночный объект или пакет (batch).
//
// Пакет из одного объекта логически эквивалентен одиночному объекту.
type Value struct {
	Objects []*DataObject `json:"objects"`
}

// Single создаёт значение из одного объекта.
func Single(obj *DataObject) Value {
	return Value{Objects: []*DataObject{obj}}
}

// Batch создаёт значение-пакет.
func Batch(objs ...*DataObject) Value {
	return Value{Objects: objs}
}

// Len возвращает количество объектов в значении.
func (v Value) Len() int {
	return len(v.Objects)
}

// IsEmpty проверяет, что значение не содержит объектов.
func (v Value) IsEmpty() bool {
	return len(v.Objects) == 0
}

// IsMultiple проверяет, что значение — настоящий пакет (больше одного объекта).
func (v Value) IsMultiple() bool {
	return len(v.Objects) > 1
}

// First возвращает первый объект или nil.
func (v Value) First() *DataObject {
	if len(v.Objects) == 0 {
		return nil
	}
	return v.Objects[0]
}

// Kinds возвращает виды объектов по порядку.
func (v Value) Kinds() []Kind {
	kinds := make([]Kind, len(v.Objects))
	for i, obj := range v.Objects {
		kinds[i] = obj.Kind
	}
	return kinds
}

// ObjectSet — внешние объекты, доступные workflow по имени.
type ObjectSet map[string]Value

// Lookup возвращает объект по имени.
func (s ObjectSet) Lookup(name string) (Value, bool) {
	v, ok := s[name]
	return v, ok
}
