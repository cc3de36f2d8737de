package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/foodie-express/internal/model"
)

// Baseline возвращает поставляемый каталог. Каждый вызов возвращает новую копию.
func Baseline() []model.MenuItem {
	return []model.MenuItem{
		item("1", "Margherita Pizza",
			"Classic Italian pizza with fresh tomatoes, mozzarella cheese, and aromatic basil leaves",
			299, "https://images.unsplash.com/photo-1513104890138-7c749659a591?w=400&h=300&fit=crop",
			"Pizza", true, 4.5, "25-30 mins"),
		item("2", "Chicken Biryani",
			"Aromatic basmati rice cooked with tender chicken pieces and traditional Indian spices",
			349, "https://images.unsplash.com/photo-1631452180519-c014fe946bc7?w=400&h=300&fit=crop",
			"Indian", false, 4.7, "35-40 mins"),
		item("3", "Gourmet Veg Burger",
			"Crispy vegetable patty with fresh lettuce, tomatoes, onions and our special sauce",
			199, "https://images.unsplash.com/photo-1568901346375-23c9450c58cd?w=400&h=300&fit=crop",
			"Burgers", true, 4.2, "15-20 mins"),
		item("4", "Chocolate Brownie Delight",
			"Rich, fudgy chocolate brownie served warm with vanilla ice cream and chocolate sauce",
			149, "https://images.unsplash.com/photo-1606313564200-e75d5e30476c?w=400&h=300&fit=crop",
			"Desserts", true, 4.8, "5-10 mins"),
		item("5", "Paneer Tikka Masala",
			"Marinated cottage cheese cubes grilled to perfection in rich, creamy tomato gravy",
			279, "https://images.unsplash.com/photo-1585937421612-70a008356fbe?w=400&h=300&fit=crop",
			"Indian", true, 4.6, "20-25 mins"),
		item("6", "Hakka Chicken Noodles",
			"Stir-fried noodles with tender chicken pieces and fresh vegetables in savory sauce",
			249, "https://images.unsplash.com/photo-1526318896980-cf78c088247c?w=400&h=300&fit=crop",
			"Chinese", false, 4.3, "15-20 mins"),
		item("7", "Caesar Salad Supreme",
			"Fresh romaine lettuce with parmesan cheese, croutons, and classic caesar dressing",
			229, "https://images.unsplash.com/photo-1512621776951-a57141f2eefd?w=400&h=300&fit=crop",
			"Salads", true, 4.1, "10-15 mins"),
		item("8", "Pepperoni Pizza",
			"Classic pizza topped with spicy pepperoni slices and melted mozzarella cheese",
			349, "https://images.unsplash.com/photo-1628840042765-356cda07504e?w=400&h=300&fit=crop",
			"Pizza", false, 4.6, "25-30 mins"),
		item("9", "Butter Chicken",
			"Tender chicken pieces in rich, creamy tomato-based curry with aromatic spices",
			329, "https://images.unsplash.com/photo-1588166524941-3bf61a9c41db?w=400&h=300&fit=crop",
			"Indian", false, 4.7, "30-35 mins"),
		item("10", "Chicken Burger Deluxe",
			"Grilled chicken breast with lettuce, tomato, cheese and our signature sauce",
			259, "https://images.unsplash.com/photo-1571091718767-18b5b1457add?w=400&h=300&fit=crop",
			"Burgers", false, 4.4, "18-22 mins"),
		item("11", "Veg Fried Rice",
			"Fragrant basmati rice stir-fried with mixed vegetables and aromatic spices",
			189, "https://images.unsplash.com/photo-1603133872878-684f208fb84b?w=400&h=300&fit=crop",
			"Chinese", true, 4.2, "15-20 mins"),
		item("12", "Tiramisu",
			"Classic Italian dessert with coffee-soaked ladyfingers and mascarpone cream",
			179, "https://images.unsplash.com/photo-1571877227200-a0d98ea607e9?w=400&h=300&fit=crop",
			"Desserts", true, 4.5, "5-8 mins"),
		item("13", "Mango Lassi",
			"Refreshing yogurt-based drink blended with sweet mango pulp and cardamom",
			89, "https://images.unsplash.com/photo-1544145945-f90425340c7e?w=400&h=300&fit=crop",
			"Beverages", true, 4.3, "5 mins"),
		item("14", "Garlic Bread",
			"Crispy bread slices topped with garlic butter, herbs and melted cheese",
			129, "https://images.unsplash.com/photo-1541592106381-b31e9677c0e5?w=400&h=300&fit=crop",
			"Sides", true, 4.0, "10-12 mins"),
		item("15", "Tom Yum Soup",
			"Spicy and sour Thai soup with mushrooms, lemongrass and aromatic herbs",
			159, "https://images.unsplash.com/photo-1547592166-23ac45744acd?w=400&h=300&fit=crop",
			"Soups", true, 4.4, "12-15 mins"),
		item("16", "Pasta Carbonara",
			"Creamy Italian pasta with bacon, eggs, parmesan cheese and black pepper",
			289, "https://images.unsplash.com/photo-1551183053-bf91a1d81141?w=400&h=300&fit=crop",
			"Italian", false, 4.5, "20-25 mins"),
		item("17", "Chicken Tacos",
			"Soft tortillas filled with seasoned chicken, lettuce, cheese and salsa",
			219, "https://images.unsplash.com/photo-1551504734-5ee1c4a1479b?w=400&h=300&fit=crop",
			"Mexican", false, 4.3, "15-18 mins"),
		item("18", "Pad Thai",
			"Traditional Thai stir-fried noodles with shrimp, tofu, bean sprouts and peanuts",
			269, "https://images.unsplash.com/photo-1617093727343-374698b1b08d?w=400&h=300&fit=crop",
			"Thai", false, 4.6, "18-22 mins"),
		item("19", "Sushi Platter",
			"Fresh assorted sushi rolls with salmon, tuna, and vegetables served with wasabi",
			399, "https://images.unsplash.com/photo-1579584425555-c3ce17fd4351?w=400&h=300&fit=crop",
			"Japanese", false, 4.8, "25-30 mins"),
		item("20", "Fresh Fruit Smoothie",
			"Healthy blend of seasonal fruits with yogurt and honey",
			119, "https://images.unsplash.com/photo-1553530666-ba11a7da3888?w=400&h=300&fit=crop",
			"Beverages", true, 4.2, "5-8 mins"),
	}
}

func item(id, name, description string, price int64, image, category string, veg bool, rating float64, prepTime string) model.MenuItem {
	return model.MenuItem{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       decimal.NewFromInt(price),
		Image:       image,
		Category:    category,
		IsVeg:       &veg,
		Rating:      &rating,
		PrepTime:    prepTime,
	}
}
