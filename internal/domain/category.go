package domain

import "strings"

// DefaultCategory назначается товару без категории
const DefaultCategory = "Other"

// NormalizeCategory обрезает пробелы и подставляет категорию по умолчанию.
func NormalizeCategory(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultCategory
	}

	return name
}

// IsAnyCategory сообщает, что значение фильтра означает «все категории».
func IsAnyCategory(filter string) bool {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "", "all", "todos", "todas":
		return true
	default:
		return false
	}
}
