// Package i18n содержит таблицы локализованных строк для движка и API.
package i18n

import (
	"golang.org/x/text/language"
)

// Ключи, которые использует движок агрегации.
const (
	KeyNoTitle       = "noTitle"
	KeyNoDescription = "noDescription"
	KeyLoading       = "loading"
	KeyAddedPosts    = "addedPosts"
	KeyAddedFeeds    = "addedFeeds"
	KeyNoPosts       = "noPosts"
	KeyNoFeeds       = "noFeeds"
	KeySuccess       = "success"
	KeyNetwork       = "errors.network"
	KeyParseError    = "errors.parseError"
	KeyUpdateError   = "errors.updateError"
	KeyRequired      = "errors.required"
	KeyURL           = "errors.url"
	KeyUnique        = "errors.unique"
)

var tables = map[string]map[string]string{
	"en": {
		KeyNoTitle:       "No title",
		KeyNoDescription: "No description",
		KeyLoading:       "Loading...",
		KeyAddedPosts:    "Added Posts",
		KeyAddedFeeds:    "Added Feeds",
		KeyNoPosts:       "No posts yet",
		KeyNoFeeds:       "No feeds added yet",
		KeySuccess:       "RSS feed loaded successfully",
		KeyNetwork:       "Network error. Please try again later.",
		KeyParseError:    "Error parsing RSS feed. Invalid format.",
		KeyUpdateError:   "Error updating feeds. Trying again soon...",
		KeyRequired:      "URL is required",
		KeyURL:           "Must be a valid URL",
		KeyUnique:        "RSS feed already exists",
	},
	"ru": {
		KeyNoTitle:       "Без названия",
		KeyNoDescription: "Без описания",
		KeyLoading:       "Загрузка...",
		KeyAddedPosts:    "Добавленные посты",
		KeyAddedFeeds:    "Добавленные фиды",
		KeyNoPosts:       "Пока нет постов",
		KeyNoFeeds:       "Фиды еще не добавлены",
		KeySuccess:       "RSS успешно загружен",
		KeyNetwork:       "Ошибка сети. Пожалуйста, попробуйте позже.",
		KeyParseError:    "Ошибка разбора RSS. Неверный формат.",
		KeyUpdateError:   "Ошибка обновления лент. Повторная попытка...",
		KeyRequired:      "Не должно быть пустым",
		KeyURL:           "Ссылка должна быть валидным URL",
		KeyUnique:        "RSS уже существует",
	},
}

var supported = []language.Tag{language.English, language.Russian}

var matcher = language.NewMatcher(supported)

// Translator разрешает ключи локализации в строки выбранного языка.
type Translator struct {
	lang  string
	table map[string]string
}

// New создает Translator для ближайшего поддерживаемого языка.
// Неизвестный или пустой тег дает английский.
func New(lang string) *Translator {
	code := Match(lang)
	return &Translator{lang: code, table: tables[code]}
}

// Match возвращает код поддерживаемого языка, ближайшего к тегу lang.
func Match(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return "en"
	}
	matched, _, _ := matcher.Match(tag)
	base, _ := matched.Base()
	if _, ok := tables[base.String()]; !ok {
		return "en"
	}
	return base.String()
}

// Supported сообщает, есть ли таблица для тега lang.
func Supported(lang string) bool {
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	_, _, confidence := matcher.Match(tag)
	return confidence != language.No
}

// Lang возвращает код используемого языка.
func (t *Translator) Lang() string { return t.lang }

// T возвращает строку для ключа; отсутствующий ключ возвращается как есть.
func (t *Translator) T(key string) string {
	if s, ok := t.table[key]; ok {
		return s
	}
	return key
}
