package domain

import "strings"

// Category is an emergency resource kind.
type Category string

const (
	CategoryHospital Category = "hospital"
	CategoryPolice   Category = "police"
	CategoryPharmacy Category = "pharmacy"
	// CategoryClinic is only searched as a fallback, never requested directly.
	CategoryClinic Category = "clinic"
)

// RequestedCategories are resolved for every SOS trigger, in bundle order.
var RequestedCategories = []Category{CategoryHospital, CategoryPolice, CategoryPharmacy}

// ParseCategory maps user input to a requestable category.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryHospital:
		return CategoryHospital, true
	case CategoryPolice:
		return CategoryPolice, true
	case CategoryPharmacy:
		return CategoryPharmacy, true
	}
	return "", false
}

// Title returns the capitalised category name, e.g. "Hospital".
func (c Category) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}
