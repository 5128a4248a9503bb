package service

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"

	"todoey/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return model.IsValidName(fl.Field().String())
		})
	})
	return validate
}

// Length limits, counted in runes.
const (
	MaxNameLen  = 255
	MaxTitleLen = 1024
)

// messageIDs maps a failing field and tag to the translation shown for it.
// A field without a tag-specific entry uses its "" entry.
var messageIDs = map[string]map[string]string{
	"Name":  {"": model.MsgCategoryNameBlank, "max": model.MsgCategoryNameTooLong},
	"Title": {"": model.MsgItemTitleBlank, "max": model.MsgItemTitleTooLong},
	"Query": {"": model.MsgSearchQueryBlank},
	"Color": {"": model.MsgColorInvalid},
}

// checkInput runs the struct tags and reports the first failure as a
// *model.ValidationError.
func checkInput(input any) error {
	err := inputValidator().Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &model.ValidationError{Field: fe.Field(), MessageID: messageID(fe.Field(), fe.Tag())}
}

func messageID(field, tag string) string {
	byTag, ok := messageIDs[field]
	if !ok {
		return tag
	}
	if msg, ok := byTag[tag]; ok {
		return msg
	}
	return byTag[""]
}
