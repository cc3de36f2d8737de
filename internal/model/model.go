// Package model содержит доменные сущности витрины доставки еды.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет зарегистрированного пользователя демо-хранилища учётных данных.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash []byte    `json:"credential"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MenuItem описывает позицию меню.
type MenuItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category,omitempty"`
	IsVeg       *bool           `json:"isVeg,omitempty"`
	Rating      *float64        `json:"rating,omitempty"`
	PrepTime    string          `json:"prepTime,omitempty"`
}

// MenuItemPatch описывает частичное изменение позиции меню. Nil-поле означает «не менять».
type MenuItemPatch struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Image       *string          `json:"image,omitempty"`
	Category    *string          `json:"category,omitempty"`
	IsVeg       *bool            `json:"isVeg,omitempty"`
	Rating      *float64         `json:"rating,omitempty"`
	PrepTime    *string          `json:"prepTime,omitempty"`
}

// Apply возвращает копию item с применёнными полями патча.
func (p MenuItemPatch) Apply(item MenuItem) MenuItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Image != nil {
		item.Image = *p.Image
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.IsVeg != nil {
		v := *p.IsVeg
		item.IsVeg = &v
	}
	if p.Rating != nil {
		v := *p.Rating
		item.Rating = &v
	}
	if p.PrepTime != nil {
		item.PrepTime = *p.PrepTime
	}
	return item
}

// Merge объединяет два патча по полям, поля next побеждают.
func (p MenuItemPatch) Merge(next MenuItemPatch) MenuItemPatch {
	if next.Name != nil {
		p.Name = next.Name
	}
	if next.Description != nil {
		p.Description = next.Description
	}
	if next.Price != nil {
		p.Price = next.Price
	}
	if next.Image != nil {
		p.Image = next.Image
	}
	if next.Category != nil {
		p.Category = next.Category
	}
	if next.IsVeg != nil {
		p.IsVeg = next.IsVeg
	}
	if next.Rating != nil {
		p.Rating = next.Rating
	}
	if next.PrepTime != nil {
		p.PrepTime = next.PrepTime
	}
	return p
}

// CartLine описывает строку корзины: позиция меню и её количество.
type CartLine struct {
	MenuItem
	Quantity int `json:"quantity"`
}

// CartState содержит состояние корзины. Total всегда равен сумме price * quantity по строкам.
type CartState struct {
	Items   []CartLine      `json:"items"`
	Total   decimal.Decimal `json:"total"`
	Loading bool            `json:"loading"`
	Error   *string         `json:"error"`
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out-for-delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// Valid сообщает, входит ли статус в известный набор.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal сообщает, что заказ больше не меняет статус.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// PaymentMethod описывает способ оплаты.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentUPI  PaymentMethod = "upi"
)

// CustomerInfo содержит контактные данные и адрес доставки.
type CustomerInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes,omitempty"`
}

// OrderItem хранит снимок строки корзины на момент оформления заказа.
type OrderItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
}

// Order описывает оформленный заказ.
type Order struct {
	ID                string          `json:"id"`
	OrderNumber       string          `json:"orderNumber"`
	UserID            string          `json:"userId"`
	Items             []OrderItem     `json:"items"`
	Total             decimal.Decimal `json:"total"`
	Status            OrderStatus     `json:"status"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	CreatedAt         time.Time       `json:"createdAt"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
	CustomerInfo      CustomerInfo    `json:"customerInfo"`
}

// Location описывает регион доставки.
type Location struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}
