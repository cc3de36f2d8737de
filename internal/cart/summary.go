package cart

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/foodie-express/internal/model"
)

var (
	freeDeliveryThreshold = decimal.NewFromInt(500)
	standardDeliveryFee   = decimal.NewFromInt(40)
)

// Summary содержит итог корзины для страницы оформления.
type Summary struct {
	ItemCount   int             `json:"itemCount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
}

// DeliveryFee возвращает стоимость доставки: бесплатно для пустой корзины и сумм больше 500.
func DeliveryFee(total decimal.Decimal, empty bool) decimal.Decimal {
	if empty || total.GreaterThan(freeDeliveryThreshold) {
		return decimal.Zero
	}
	return standardDeliveryFee
}

// Summarize считает итог корзины.
func Summarize(state model.CartState) Summary {
	count := 0
	for _, l := range state.Items {
		count += l.Quantity
	}
	subtotal := Total(state.Items)
	fee := DeliveryFee(subtotal, len(state.Items) == 0)

	return Summary{
		ItemCount:   count,
		Subtotal:    subtotal,
		DeliveryFee: fee,
		GrandTotal:  subtotal.Add(fee),
	}
}
