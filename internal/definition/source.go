package definition

import (
	"fmt"
	"strings"

	"github.com/shaiso/Textflow/internal/domain"
)

// externalPrefix — префикс ссылки на внешний объект.
const externalPrefix = "external:"

// claimMain — заявка главного выхода workflow.
const claimMain = "main"

// ParseSource разбирает ссылку на источник входа.
//
//	external:NAME — внешний объект NAME
//	JOB.PORT      — выход PORT задачи JOB (ID задачи может содержать точки)
func ParseSource(ref string) (domain.Source, error) {
	if name, ok := strings.CutPrefix(ref, externalPrefix); ok {
		if name == "" {
			return domain.Source{}, fmt.Errorf("%w: %q has no external name", ErrInvalidSource, ref)
		}
		return domain.External(name), nil
	}

	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return domain.Source{}, fmt.Errorf("%w: %q, expected external:NAME or JOB.PORT", ErrInvalidSource, ref)
	}
	return domain.JobOutput(ref[:i], ref[i+1:]), nil
}

// ParseClaim разбирает заявку выхода.
func ParseClaim(claim string) domain.OutputClaim {
	if claim == claimMain {
		return domain.OutputClaim{Main: true}
	}
	return domain.OutputClaim{Name: claim}
}

// FormatSource возвращает ссылку в записи определения.
func FormatSource(src domain.Source) string {
	if src.IsExternal() {
		return externalPrefix + src.Name
	}
	return src.JobID + "." + src.Port
}
