package domain

import "time"

// Clock — источник текущего времени.
//
// Все проверки, зависящие от времени (дневные лимиты, отметки
// started_at/finished_at, расчёт расписаний), берут время из Clock,
// а не из time.Now напрямую — в тестах подставляется фиксированный clock.
type Clock interface {
	Now() time.Time
}

// SystemClock — Clock на основе системного времени.
type SystemClock struct{}

// Now возвращает текущее системное время.
func (SystemClock) Now() time.Time {
	return time.Now()
}
