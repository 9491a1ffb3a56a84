// Package trigger решает, должен ли workflow сработать на событие записи.
//
// Проверки выполняются строго по порядку: активность workflow, дневной
// лимит срабатываний, ограничение по виду события (create_only/update_only),
// соответствие типа триггера типу события и, для field_changed, проверка
// изменившихся полей. Первая непройденная проверка останавливает цепочку.
package trigger
