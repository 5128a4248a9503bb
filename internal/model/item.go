package model

import "time"

// Item is a single to-do entry owned by exactly one category.
type Item struct {
	ID         string `gorm:"primaryKey;size:36"`
	CategoryID string `gorm:"not null;index;size:36"`
	Title      string `gorm:"not null"`
	Done       bool   `gorm:"default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (i *Item) Validate() error {
	if !IsValidName(i.Title) {
		return &ValidationError{Field: "title", MessageID: MsgItemTitleBlank}
	}
	if i.CategoryID == "" {
		return &ValidationError{Field: "category_id", MessageID: MsgCategoryRequired}
	}
	return nil
}
