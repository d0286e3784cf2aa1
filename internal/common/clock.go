// Package common — clock.go даёт источники времени.
// Всё, что зависит от «сейчас» (восстановление энергии, периоды заданий),
// получает время через интерфейс Clock — в тестах его подменяют на фиксированный.
package common

import "time"

// Clock — источник текущего времени.
type Clock interface {
	Now() time.Time
}

// RealClock возвращает системное время.
type RealClock struct{}

// Now возвращает time.Now().
func (RealClock) Now() time.Time { return time.Now() }

// FixedClock всегда возвращает одно и то же время. Используется в тестах.
type FixedClock struct {
	T time.Time
}

// Now возвращает зафиксированное время.
func (c FixedClock) Now() time.Time { return c.T }

// LoadLocation загружает часовой пояс по имени.
// Если база зон недоступна (минимальный Docker-образ) — откатываемся на UTC+3,
// как и задумано для продакшен-пояса Europe/Moscow.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}
