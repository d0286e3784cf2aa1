// Package upgrades — pricing.go считает цену следующего уровня улучшения.
package upgrades

import (
	"math"
	"math/big"
)

// Price возвращает стоимость покупки уровня level+1:
// floor(basePrice × (multiplier/100)^level).
//
// Считаем точно в целых числах: floor(basePrice × multiplier^level / 100^level)
// через math/big. Плавающее возведение в степень на высоких уровнях
// (до 100) накапливает ошибку и даёт цены, отличающиеся от эталона на
// единицы — для магазина это заметно. Целочисленная степень детерминирована
// на любой платформе.
//
// Если точный результат не помещается в int64, возвращается math.MaxInt64:
// такой уровень фактически некупим, баланса не хватит никогда.
func Price(basePrice, multiplier int64, level int) int64 {
	if level <= 0 {
		return basePrice
	}

	exp := big.NewInt(int64(level))
	num := new(big.Int).Exp(big.NewInt(multiplier), exp, nil)
	num.Mul(num, big.NewInt(basePrice))
	den := new(big.Int).Exp(big.NewInt(100), exp, nil)
	num.Quo(num, den)

	if !num.IsInt64() {
		return math.MaxInt64
	}
	return num.Int64()
}
