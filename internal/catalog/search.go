package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/foodie-express/internal/model"
)

// AllCategories задаёт категорию, не ограничивающую выборку.
const AllCategories = "All"

// Filter задаёт условия отбора позиций меню. Пустые поля не ограничивают выборку.
type Filter struct {
	Query     string
	Category  string
	VegOnly   bool
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinRating float64
}

// Match сообщает, удовлетворяет ли позиция фильтру. Позиция без рейтинга проходит фильтр по рейтингу.
func (f Filter) Match(it model.MenuItem) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(it.Name), q) &&
			!strings.Contains(strings.ToLower(it.Description), q) &&
			!strings.Contains(strings.ToLower(it.Category), q) {
			return false
		}
	}
	if f.Category != "" && !strings.EqualFold(f.Category, AllCategories) && !strings.EqualFold(it.Category, f.Category) {
		return false
	}
	if f.VegOnly && (it.IsVeg == nil || !*it.IsVeg) {
		return false
	}
	if f.MinPrice != nil && it.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && it.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.MinRating > 0 && it.Rating != nil && *it.Rating < f.MinRating {
		return false
	}
	return true
}

// Search возвращает позиции действующего каталога, подходящие под фильтр, в порядке каталога.
func (r *Repository) Search(f Filter) []model.MenuItem {
	all := r.Effective()
	out := make([]model.MenuItem, 0, len(all))
	for _, it := range all {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

// Categories возвращает категории действующего каталога в порядке первого появления.
func (r *Repository) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range r.Effective() {
		if it.Category == "" {
			continue
		}
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}
