// Package quests — period.go считает границы периодов заданий.
// Чистые детерминированные функции: одно и то же "сейчас" всегда даёт
// одно и то же начало периода.
package quests

import "time"

// PeriodStart возвращает начало текущего периода в часовом поясе loc.
// Для daily это полночь календарного дня, для weekly — полночь последнего
// понедельника (сам понедельник считается началом своей недели).
// Неизвестный вид периода трактуется как daily.
func PeriodStart(period string, now time.Time, loc *time.Location) time.Time {
	t := now.In(loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	if period == PeriodWeekly {
		// Weekday: Sunday=0 ... Monday=1; приводим к Monday=0.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	}
	return day
}
