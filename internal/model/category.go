package model

import (
	"regexp"
	"strings"
	"time"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Category is a named list that owns its items. Deleting a category deletes
// every item whose CategoryID points at it.
type Category struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"not null;index"`
	Color     string `gorm:"size:7"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the rules every stored category satisfies.
func (c *Category) Validate() error {
	if !IsValidName(c.Name) {
		return &ValidationError{Field: "name", MessageID: MsgCategoryNameBlank}
	}
	if c.Color != "" && !hexColor.MatchString(c.Color) {
		return &ValidationError{Field: "color", MessageID: MsgColorInvalid}
	}
	return nil
}

// IsValidName reports whether text can be used as a category name or item title.
func IsValidName(text string) bool {
	return strings.TrimSpace(text) != ""
}
