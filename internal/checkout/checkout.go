// Package checkout преобразует корзину в отправку заказа.
package checkout

import (
	"context"
	"errors"

	"github.com/mmeshcher/ecommerce-system/internal/cart"
	"github.com/mmeshcher/ecommerce-system/internal/gateway"
	"github.com/mmeshcher/ecommerce-system/internal/model"
)

// ErrEmptyCart возвращается при попытке оформить пустую корзину.
// Вызывающая сторона не должна предлагать оформление пустой корзины.
var ErrEmptyCart = errors.New("cart is empty")

// Gateway определяет операцию размещения заказа, используемую координатором.
type Gateway interface {
	PlaceOrder(ctx context.Context, items []model.OrderItemRequest) (*gateway.OrderConfirmation, error)
}

// Coordinator выполняет оформление заказа целиком: либо сервер принял
// заказ и корзина очищена, либо корзина осталась ровно в прежнем виде.
type Coordinator struct {
	gw            Gateway
	cart          *cart.Cart
	ordersChanged func()
}

// NewCoordinator создаёт координатор оформления. ordersChanged вызывается
// после успешного заказа для обновления истории заказов; допускается nil.
func NewCoordinator(gw Gateway, c *cart.Cart, ordersChanged func()) *Coordinator {
	return &Coordinator{
		gw:            gw,
		cart:          c,
		ordersChanged: ordersChanged,
	}
}

// Checkout отправляет текущую корзину как заказ, сохраняя порядок позиций.
// Корзина очищается только после подтверждения сервера: при любом отказе
// она остаётся нетронутой, чтобы пользователь мог повторить попытку.
func (c *Coordinator) Checkout(ctx context.Context) (int64, error) {
	lines := c.cart.Lines()
	if len(lines) == 0 {
		return 0, ErrEmptyCart
	}

	items := make([]model.OrderItemRequest, 0, len(lines))
	for _, l := range lines {
		items = append(items, model.OrderItemRequest{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
		})
	}

	// Ошибка шлюза возвращается без обёртки: причина отказа сервера
	// должна дойти до пользователя дословно.
	conf, err := c.gw.PlaceOrder(ctx, items)
	if err != nil {
		return 0, err
	}

	c.cart.Clear()
	if c.ordersChanged != nil {
		c.ordersChanged()
	}

	return conf.ID, nil
}
