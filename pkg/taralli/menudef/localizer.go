package menudef

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Localizer resolves menu label message IDs against TOML message files.
type Localizer struct {
	localizer *i18n.Localizer
}

// NewLocalizer builds a localizer for the given BCP 47 language tags
// (most preferred first) from TOML message files.
func NewLocalizer(messageFiles []string, langs ...string) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, path := range messageFiles {
		if _, err := bundle.LoadMessageFile(path); err != nil {
			return nil, fmt.Errorf("menudef: load messages %s: %w", path, err)
		}
	}

	return &Localizer{
		localizer: i18n.NewLocalizer(bundle, langs...),
	}, nil
}

// Resolve translates a message ID, falling back to the ID itself when no
// message exists. Plain-text labels therefore pass through untouched.
func (l *Localizer) Resolve(id string) string {
	if id == "" {
		return id
	}
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return id
	}
	return msg
}
