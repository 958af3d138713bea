package service

import (
	"fmt"
	"unicode"

	"moral-torture-machine/internal/models"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when a request carries no language parameter.
const DefaultLanguage = "en"

const maxLanguageLength = 10

// ValidateLanguage accepts short alphabetic codes that parse as a BCP 47 tag.
func ValidateLanguage(lang string) error {
	if lang == "" || len(lang) > maxLanguageLength {
		return fmt.Errorf("%w: %q", models.ErrInvalidLanguage, lang)
	}
	for _, r := range lang {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			return fmt.Errorf("%w: %q", models.ErrInvalidLanguage, lang)
		}
	}
	if _, err := language.Parse(lang); err != nil {
		return fmt.Errorf("%w: %q: %v", models.ErrInvalidLanguage, lang, err)
	}
	return nil
}
