// Package validation содержит проверки данных, которые вводит покупатель при оформлении заказа.
package validation

import (
	"fmt"
	"strings"

	"github.com/mmeshcher/foodie-express/internal/model"
)

// Поля, которые указываются в ошибке проверки.
const (
	FieldName          = "name"
	FieldPhone         = "phone"
	FieldAddress       = "address"
	FieldPaymentMethod = "paymentMethod"
)

// Error описывает первое нарушенное условие проверки.
type Error struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsValidPhone проверяет, что номер состоит из 10 цифр и начинается с цифры от 6 до 9.
func IsValidPhone(phone string) bool {
	if len(phone) != 10 {
		return false
	}
	if phone[0] < '6' || phone[0] > '9' {
		return false
	}
	for i := 1; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return false
		}
	}
	return true
}

// IsValidPaymentMethod проверяет, что способ оплаты входит в поддерживаемый набор.
func IsValidPaymentMethod(m model.PaymentMethod) bool {
	switch m {
	case model.PaymentCash, model.PaymentCard, model.PaymentUPI:
		return true
	}
	return false
}

// ValidateCheckout проверяет контактные данные и способ оплаты.
// Сначала обязательные поля, затем формат телефона, затем способ оплаты.
func ValidateCheckout(info model.CustomerInfo, method model.PaymentMethod) error {
	switch {
	case strings.TrimSpace(info.Name) == "":
		return &Error{Field: FieldName, Reason: "name is required"}
	case strings.TrimSpace(info.Phone) == "":
		return &Error{Field: FieldPhone, Reason: "phone is required"}
	case strings.TrimSpace(info.Address) == "":
		return &Error{Field: FieldAddress, Reason: "address is required"}
	case method == "":
		return &Error{Field: FieldPaymentMethod, Reason: "payment method is required"}
	}

	if !IsValidPhone(info.Phone) {
		return &Error{Field: FieldPhone, Reason: "enter a valid 10-digit mobile number"}
	}
	if !IsValidPaymentMethod(method) {
		return &Error{Field: FieldPaymentMethod, Reason: fmt.Sprintf("unsupported payment method %q", method)}
	}
	return nil
}
