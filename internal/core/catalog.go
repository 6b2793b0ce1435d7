package core

// DefaultCategory is preselected on every new expense row.
const DefaultCategory = "Закупка Продуктов"

// Catalog is the fixed, ordered list of expense categories offered by the form.
type Catalog []string

// DefaultCatalog returns the café's expense categories in display order.
func DefaultCatalog() Catalog {
	return Catalog{
		DefaultCategory,
		"Закупка Дессертов",
		"Закупка Молока",
		"Закупка Кофе",
		"Закупка Посуды",
		"На руки",
		"Аренда",
		"Реклама",
		"Коммуналка",
		"Прочее",
	}
}

// Contains reports whether category is part of the catalog.
func (c Catalog) Contains(category string) bool {
	for _, v := range c {
		if v == category {
			return true
		}
	}
	return false
}
