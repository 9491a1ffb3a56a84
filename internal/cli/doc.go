// Package cli реализует команды утилиты reactor.
//
// Команды:
//   - workflow — управление workflows (list, show, activate, deactivate, delete)
//   - validate — проверка файла определения workflow
//   - evaluate — проверка дерева условий на тестовых данных
//   - cron     — вычисление времени запусков по cron-выражению
//
// Команды workflow ходят напрямую в PostgreSQL (DB_URL);
// validate, evaluate и cron работают локально, без соединений.
package cli
