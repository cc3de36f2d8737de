// Package cart содержит конечный автомат корзины: чистый редьюсер переходов
// и сервис, который хранит корзины владельцев и синхронизирует их с хранилищем.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/foodie-express/internal/model"
)

// ActionType задаёт тип перехода корзины.
type ActionType string

const (
	ActionAddItem        ActionType = "ADD_ITEM"
	ActionRemoveItem     ActionType = "REMOVE_ITEM"
	ActionUpdateQuantity ActionType = "UPDATE_QUANTITY"
	ActionClearCart      ActionType = "CLEAR_CART"
	ActionSetCart        ActionType = "SET_CART"
	ActionSetLoading     ActionType = "SET_LOADING"
	ActionSetError       ActionType = "SET_ERROR"
)

// Action описывает один переход. Используются только поля, нужные его типу.
type Action struct {
	Type     ActionType
	Item     model.MenuItem
	ID       string
	Quantity int
	State    model.CartState
	Loading  bool
	Error    *string
}

// AddItem добавляет позицию или увеличивает её количество на единицу.
func AddItem(item model.MenuItem) Action { return Action{Type: ActionAddItem, Item: item} }

// RemoveItem удаляет строку с позицией id.
func RemoveItem(id string) Action { return Action{Type: ActionRemoveItem, ID: id} }

// UpdateQuantity задаёт количество позиции; значение меньше единицы удаляет строку.
func UpdateQuantity(id string, qty int) Action {
	return Action{Type: ActionUpdateQuantity, ID: id, Quantity: qty}
}

// ClearCart очищает корзину.
func ClearCart() Action { return Action{Type: ActionClearCart} }

// SetCart заменяет состояние корзины целиком, строки нормализуются.
func SetCart(state model.CartState) Action { return Action{Type: ActionSetCart, State: state} }

// SetLoading выставляет флаг загрузки.
func SetLoading(loading bool) Action { return Action{Type: ActionSetLoading, Loading: loading} }

// SetError записывает сообщение об ошибке; nil очищает его.
func SetError(msg *string) Action { return Action{Type: ActionSetError, Error: msg} }

// ChangesLines сообщает, меняет ли переход строки корзины.
func (a Action) ChangesLines() bool {
	switch a.Type {
	case ActionAddItem, ActionRemoveItem, ActionUpdateQuantity, ActionClearCart, ActionSetCart:
		return true
	}
	return false
}

// Empty возвращает пустую корзину.
func Empty() model.CartState {
	return model.CartState{Items: []model.CartLine{}, Total: decimal.Zero}
}

// Reduce применяет переход к состоянию и возвращает новое состояние. Исходное состояние не меняется.
// Неизвестный тип перехода возвращает копию исходного состояния.
func Reduce(state model.CartState, action Action) model.CartState {
	next := clone(state)

	switch action.Type {
	case ActionAddItem:
		if i := lineIndex(next.Items, action.Item.ID); i >= 0 {
			next.Items[i].Quantity++
		} else {
			next.Items = append(next.Items, model.CartLine{MenuItem: action.Item, Quantity: 1})
		}
		next.Total = Total(next.Items)

	case ActionRemoveItem:
		next.Items = removeLine(next.Items, action.ID)
		next.Total = Total(next.Items)

	case ActionUpdateQuantity:
		if action.Quantity <= 0 {
			next.Items = removeLine(next.Items, action.ID)
		} else if i := lineIndex(next.Items, action.ID); i >= 0 {
			next.Items[i].Quantity = action.Quantity
		}
		next.Total = Total(next.Items)

	case ActionClearCart:
		next.Items = []model.CartLine{}
		next.Total = decimal.Zero

	case ActionSetCart:
		next.Items = Normalize(action.State.Items)
		next.Total = Total(next.Items)
		next.Loading = action.State.Loading
		next.Error = copyString(action.State.Error)

	case ActionSetLoading:
		next.Loading = action.Loading

	case ActionSetError:
		next.Error = copyString(action.Error)
		next.Loading = false
	}

	return next
}

// Normalize приводит строки снимка к инвариантам корзины: строки без идентификатора или
// с неположительным количеством отбрасываются, повторы одной позиции складываются.
func Normalize(lines []model.CartLine) []model.CartLine {
	out := make([]model.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.ID == "" || l.Quantity <= 0 {
			continue
		}
		if i := lineIndex(out, l.ID); i >= 0 {
			out[i].Quantity += l.Quantity
			continue
		}
		out = append(out, l)
	}
	return out
}

// Total возвращает сумму price × quantity по строкам.
func Total(lines []model.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func clone(state model.CartState) model.CartState {
	items := make([]model.CartLine, len(state.Items))
	copy(items, state.Items)
	state.Items = items
	state.Error = copyString(state.Error)
	return state
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func lineIndex(lines []model.CartLine, id string) int {
	for i, l := range lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func removeLine(lines []model.CartLine, id string) []model.CartLine {
	i := lineIndex(lines, id)
	if i < 0 {
		return lines
	}
	return append(lines[:i], lines[i+1:]...)
}
