// Package events определяет события жизненного цикла execution
// (шаг выполнен, шаг упал, workflow завершён/упал) и интерфейс Sink
// для их публикации. Исполнитель публикует события best-effort:
// ошибка публикации логируется и не влияет на выполнение.
package events
