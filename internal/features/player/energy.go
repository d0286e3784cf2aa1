// Package player — energy.go считает восстановление энергии со временем.
// Чистая арифметика без обращений к БД, вся работа с хранилищем — в repository.go.
package player

import "time"

// regeneratedEnergy возвращает энергию после elapsed времени простоя.
// Скорость — perSecond единиц за каждую ПОЛНУЮ прошедшую секунду
// (неполные секунды не дают ничего, остаток не накапливается).
// Результат никогда не превышает maxEnergy и не бывает меньше текущего energy:
// отрицательный elapsed (часы уехали назад) трактуется как ноль.
func regeneratedEnergy(energy, maxEnergy int, elapsed time.Duration, perSecond int) int {
	if energy >= maxEnergy {
		return energy
	}
	if elapsed <= 0 || perSecond <= 0 {
		return energy
	}

	seconds := int64(elapsed / time.Second)
	deficit := int64(maxEnergy - energy)
	// perSecond >= 1, так что seconds >= deficit уже означает полный бак.
	// Проверка до умножения защищает от переполнения на многолетних простоях.
	if seconds >= deficit {
		return maxEnergy
	}
	gained := seconds * int64(perSecond)
	if gained >= deficit {
		return maxEnergy
	}
	return energy + int(gained)
}
