package model

import (
	"slices"
	"strings"
)

// Category — категория документа. Закрытое множество значений
// с явным значением по умолчанию CategoryOther.
type Category string

const (
	CategoryIDFront        Category = "id_front"
	CategoryIDBack         Category = "id_back"
	CategoryPassport       Category = "passport"
	CategoryDriversLicense Category = "drivers_license"
	CategoryUtilityBill    Category = "utility_bill"
	CategoryBankStatement  Category = "bank_statement"
	// CategoryOther — значение по умолчанию для отсутствующей или неизвестной категории
	CategoryOther Category = "other"
)

// Categories возвращает все допустимые категории в фиксированном порядке.
func Categories() []Category {
	return []Category{
		CategoryIDFront,
		CategoryIDBack,
		CategoryPassport,
		CategoryDriversLicense,
		CategoryUtilityBill,
		CategoryBankStatement,
		CategoryOther,
	}
}

// IsValid проверяет, что значение входит в множество категорий.
func (c Category) IsValid() bool {
	return slices.Contains(Categories(), c)
}

// ParseCategory преобразует значение из запроса в Category.
// Пустое или нераспознанное значение даёт CategoryOther.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.IsValid() {
		return c
	}
	return CategoryOther
}
