package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — workflow, execution или запись журнала не найдены в БД.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateWorkflow — в модуле уже есть workflow с таким именем.
	ErrDuplicateWorkflow = errors.New("duplicate workflow name")
)
