package domain

import "errors"

var (
	// ErrNetwork - ретранслятор вернул неуспешный статус, не ответил вовремя
	// или прислал некорректный ответ.
	ErrNetwork = errors.New("network error")
	// ErrParse - документ не является корректным XML или в нем нет элемента channel.
	ErrParse = errors.New("parse error")
	// ErrDuplicateFeed - лента с таким URL уже зарегистрирована.
	ErrDuplicateFeed = errors.New("feed already exists")
)

// FieldError описывает нарушение правила проверки одного поля.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult - результат проверки адреса ленты.
// Ошибки проверки передаются значением, а не через error.
type ValidationResult struct {
	IsValid bool         `json:"isValid"`
	Errors  []FieldError `json:"errors"`
}
