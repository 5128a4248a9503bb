package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")
)

// Message ids shared with the presentation layer translations.
const (
	MsgCategoryNameBlank = "categoryNameBlank"
	MsgItemTitleBlank    = "itemTitleBlank"
	MsgSearchQueryBlank  = "searchQueryBlank"
	MsgColorInvalid      = "colorInvalid"
	MsgCategoryRequired  = "categoryRequired"
	MsgIDTaken           = "idTaken"

	MsgCategoryNameTooLong = "categoryNameTooLong"
	MsgItemTitleTooLong    = "itemTitleTooLong"
)

// ValidationError rejects user input. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field     string
	MessageID string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.MessageID)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFound reports a missing entity of the given kind.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// Persistence wraps a store failure so that both ErrPersistence and the
// underlying cause are reachable through errors.Is.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// IDTaken rejects a create that names an id already in use.
func IDTaken(id string) error {
	return &ValidationError{Field: "id", MessageID: MsgIDTaken}
}

// BlankQuery is returned when a search is issued without a query.
func BlankQuery() error {
	return &ValidationError{Field: "query", MessageID: MsgSearchQueryBlank}
}
