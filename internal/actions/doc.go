// Package actions реализует реестр обработчиков действий workflow
// и встроенные обработчики (webhook, condition, update_field).
//
// Исполнитель шагов обращается к действиям только через Dispatcher:
// шаг с незарегистрированным типом действия — это ошибка шага,
// а не падение процесса.
package actions
