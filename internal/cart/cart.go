// Package cart реализует локальную корзину покупателя.
//
// Корзина живёт в памяти одной сессии: создаётся пустой, очищается при
// выходе пользователя и после успешного оформления заказа. Не
// предназначена для конкурентного использования.
package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/ecommerce-system/internal/model"
)

// ErrStockExceeded возвращается, когда запрошенное количество превышает
// последний известный остаток товара. Корзина при этом не изменяется.
var ErrStockExceeded = errors.New("not enough stock available")

// Line описывает позицию корзины: выбранное количество и снимок товара
// на момент последнего добавления.
type Line struct {
	ProductID int64
	Quantity  int
	Product   model.Product
}

// Cart содержит позиции корзины в стабильном порядке добавления.
// Товар встречается не более чем в одной позиции.
type Cart struct {
	lines []Line
}

// New создаёт пустую корзину.
func New() *Cart {
	return &Cart{}
}

// Add добавляет одну единицу товара. Если товар уже в корзине, его
// количество увеличивается на единицу, а снимок товара обновляется на
// переданный. Проверка остатка выполняется для следующей единицы:
// при нехватке возвращается ErrStockExceeded и корзина остаётся
// в прежнем состоянии.
func (c *Cart) Add(p model.Product) error {
	for i := range c.lines {
		if c.lines[i].ProductID != p.ID {
			continue
		}
		if c.lines[i].Quantity+1 > p.Quantity {
			return ErrStockExceeded
		}
		c.lines[i].Quantity++
		c.lines[i].Product = p
		return nil
	}

	if p.Quantity < 1 {
		return ErrStockExceeded
	}

	c.lines = append(c.lines, Line{
		ProductID: p.ID,
		Quantity:  1,
		Product:   p,
	})
	return nil
}

// Lines возвращает копию позиций корзины в порядке добавления.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Total возвращает суммарную стоимость корзины по ценам из снимков.
// Значение вычисляется заново при каждом вызове.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// Empty сообщает, пуста ли корзина.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Clear безусловно опустошает корзину.
func (c *Cart) Clear() {
	c.lines = nil
}
