package conditions

import "strings"

// Change — старое и новое значение одного поля записи.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ChangeSet — изменения полей записи, ключ — имя поля.
type ChangeSet map[string]Change

// Context — контекст вычисления условий.
type Context struct {
	// Data — данные для разрешения путей полей (данные записи,
	// результаты шагов и т.д.).
	Data map[string]any

	// Changes — изменения полей для операторов changed/changed_to/changed_from.
	Changes ChangeSet
}

// ChangesFrom восстанавливает ChangeSet из декодированного JSON вида
// {"field": {"old": ..., "new": ...}, ...}. Неожиданные формы пропускаются.
func ChangesFrom(raw any) ChangeSet {
	switch v := raw.(type) {
	case ChangeSet:
		return v
	case map[string]Change:
		return ChangeSet(v)
	case map[string]any:
		cs := make(ChangeSet, len(v))
		for field, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			cs[field] = Change{Old: m["old"], New: m["new"]}
		}
		return cs
	default:
		return nil
	}
}

// ResolvePath разрешает путь вида "contact.email" в данных контекста.
// Отсутствующий путь — nil.
func ResolvePath(data map[string]any, path string) any {
	if path == "" {
		return nil
	}

	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// changeFieldName извлекает имя поля для операторов changed/*:
// последний сегмент пути, а для путей вида "record.stage_id" —
// сегмент сразу после "record".
func changeFieldName(path string) string {
	parts := strings.Split(path, ".")
	if len(parts) > 1 && parts[0] == "record" {
		return parts[1]
	}
	return parts[len(parts)-1]
}
