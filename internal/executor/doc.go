// Package executor реализует выполнение execution: загрузку определения
// workflow, последовательный проход по шагам с проверкой условий,
// dispatch действий, учёт retry и счётчиков, публикацию событий
// жизненного цикла.
//
// Выполнение синхронное и однопоточное в рамках одного execution.
// Каждый переход статуса немедленно сохраняется в хранилище. Паника
// обработчика действия не покидает Execute: execution помечается FAILED.
package executor
