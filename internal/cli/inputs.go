package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/Textflow/internal/definition"
	"github.com/shaiso/Textflow/internal/domain"
)

// ErrInvalidInput — флаг --input в неверном формате.
var ErrInvalidInput = errors.New("invalid input flag")

// ParseInputs разбирает флаги --input в набор внешних объектов.
//
// Форматы:
//   - name=text   — текстовый объект
//   - name=@path  — содержимое файла (text или mime по содержимому)
//
// Повтор имени собирает пакет в порядке флагов.
func ParseInputs(flags []string, dir string) (domain.ObjectSet, error) {
	set := make(domain.ObjectSet, len(flags))

	for _, flag := range flags {
		name, value, ok := strings.Cut(flag, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q, expected name=value", ErrInvalidInput, flag)
		}

		var obj *domain.DataObject
		if path, isFile := strings.CutPrefix(value, "@"); isFile {
			v, err := definition.BuildExternal(name, definition.ExternalSpec{File: path}, dir)
			if err != nil {
				return nil, err
			}
			obj = v.First()
		} else {
			obj = domain.NewText(name, value)
		}

		prev, exists := set[name]
		if !exists {
			set[name] = domain.Single(obj)
			continue
		}
		if prev.Len() == 1 {
			prev.First().Name = name + "[0]"
		}
		obj.Name = fmt.Sprintf("%s[%d]", name, prev.Len())
		set[name] = domain.Batch(append(prev.Objects, obj)...)
	}

	return set, nil
}
