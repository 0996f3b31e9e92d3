package usecase

import (
	"net/url"

	"github.com/samber/lo"

	"rssreader/internal/domain"
	"rssreader/internal/i18n"
)

const urlField = "url"

// Validator проверяет адрес ленты перед регистрацией.
type Validator struct {
	loc Localizer
}

func NewValidator(loc Localizer) *Validator {
	return &Validator{loc: loc}
}

// Validate проверяет все правила сразу и возвращает все нарушения:
// адрес обязателен, должен быть абсолютным http(s) URL и не должен быть уже добавлен.
func (v *Validator) Validate(rawURL string, existing []string) domain.ValidationResult {
	var errs []domain.FieldError
	switch {
	case rawURL == "":
		errs = append(errs, v.fieldError(i18n.KeyRequired))
	case !isFeedURL(rawURL):
		errs = append(errs, v.fieldError(i18n.KeyURL))
	}
	if rawURL != "" && lo.Contains(existing, rawURL) {
		errs = append(errs, v.fieldError(i18n.KeyUnique))
	}
	return domain.ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func (v *Validator) fieldError(key string) domain.FieldError {
	return domain.FieldError{Field: urlField, Message: v.loc.T(key)}
}

func isFeedURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
