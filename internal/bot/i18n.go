package bot

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"todoey/internal/model"
)

//go:embed locales/*.toml
var localeFS embed.FS

const (
	LanguageEn = "en"
	LanguageRu = "ru"
)

// Translator renders the bot's texts in one language, falling back to English.
type Translator struct {
	localizer *i18n.Localizer
}

// NewTranslator loads every embedded locale file into a fresh bundle.
func NewTranslator(lang string) (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(localeFS, "locales/*.toml")
	if err != nil {
		return nil, err
	}
	for _, name := range files {
		if _, err := bundle.LoadMessageFileFS(localeFS, name); err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}

	return &Translator{localizer: i18n.NewLocalizer(bundle, lang, LanguageEn)}, nil
}

// T returns the message for id. Unknown ids come back unchanged.
func (t *Translator) T(id string, data ...map[string]any) string {
	cfg := &i18n.LocalizeConfig{MessageID: id}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}
	msg, err := t.localizer.Localize(cfg)
	if err != nil {
		return id
	}
	return msg
}

// Error maps an error kind to its user-facing text.
func (t *Translator) Error(err error) string {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return t.T(verr.MessageID)
	case errors.Is(err, model.ErrNotFound):
		return t.T("errNotFound")
	case errors.Is(err, model.ErrPersistence):
		return t.T("errPersistence")
	default:
		return t.T("errUnknown")
	}
}
