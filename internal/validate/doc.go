// Package validate выполняет статическую проверку определения workflow
// перед сохранением: базовые поля, конфигурацию триггера, настройки
// выполнения, шаги и конфигурацию действий.
//
// Проверка collect-all: возвращаются все найденные ошибки, а не первая.
// Неизвестные типы действий не считаются ошибкой — реестр обработчиков
// расширяется хост-системой.
package validate
