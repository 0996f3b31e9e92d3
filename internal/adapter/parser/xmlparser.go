package parser

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"rssreader/internal/domain"
	"rssreader/internal/i18n"
)

// placeholderLink подставляется вместо отсутствующей ссылки записи.
const placeholderLink = "#"

// Localizer разрешает ключи локализации в строки.
type Localizer interface {
	T(key string) string
}

// documentXML принимает любой корневой элемент: rss (RSS 2.0), rdf:RDF (RSS 1.0),
// где записи лежат рядом с channel, а не внутри него, или сам channel.
type documentXML struct {
	XMLName xml.Name
	Channel *channelXML  `xml:"channel"`
	Items   []itemXML    `xml:"item"`
	Fields  []elementXML `xml:",any"`
}

type channelXML struct {
	XMLName xml.Name
	Items   []itemXML    `xml:"item"`
	Fields  []elementXML `xml:",any"`
}

type itemXML struct {
	XMLName xml.Name
	Fields  []elementXML `xml:",any"`
}

// elementXML - дочерний элемент с текстом. Пространство имен сохраняется,
// чтобы отличать собственные поля от расширений вроде media:title.
type elementXML struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// ownField возвращает текст первого дочернего элемента local
// из пространства имен родителя.
func ownField(parent xml.Name, fields []elementXML, local string) string {
	for _, f := range fields {
		if f.XMLName.Local == local && f.XMLName.Space == parent.Space {
			return f.Value
		}
	}
	return ""
}

// ownLink возвращает первую непустую ссылку из пространства имен родителя.
// Пустые ссылки, например atom:link с атрибутом href, пропускаются.
func ownLink(parent xml.Name, fields []elementXML) string {
	for _, f := range fields {
		if f.XMLName.Local == "link" && f.XMLName.Space == parent.Space && strings.TrimSpace(f.Value) != "" {
			return f.Value
		}
	}
	return ""
}

// XMLParser разбирает документы лент в формате channel/item.
type XMLParser struct {
	loc Localizer
	log *slog.Logger
}

func NewXMLParser(loc Localizer, log *slog.Logger) *XMLParser {
	return &XMLParser{
		loc: loc,
		log: log.With(slog.String("component", "parser")),
	}
}

// Parse разбирает сырой документ ленты sourceURL.
// Ошибки формата оборачивают domain.ErrParse.
func (p *XMLParser) Parse(ctx context.Context, raw string, sourceURL string) (*domain.ParsedFeed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		p.log.Warn("Error decoding XML",
			slog.String("url", sourceURL),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: failed to decode XML from %s: %w", domain.ErrParse, sourceURL, err)
	}
	channel := doc.Channel
	if doc.XMLName.Local == "channel" {
		channel = &channelXML{XMLName: doc.XMLName, Items: doc.Items, Fields: doc.Fields}
		doc.Items = nil
	}
	if channel == nil {
		p.log.Warn("Document has no channel element", slog.String("url", sourceURL))
		return nil, fmt.Errorf("%w: no channel element in %s", domain.ErrParse, sourceURL)
	}
	items := make([]itemXML, 0, len(channel.Items)+len(doc.Items))
	items = append(items, channel.Items...)
	items = append(items, doc.Items...)

	feed := &domain.ParsedFeed{
		Title:       orDefault(ownField(channel.XMLName, channel.Fields, "title"), p.loc.T(i18n.KeyNoTitle)),
		Description: orDefault(ownField(channel.XMLName, channel.Fields, "description"), p.loc.T(i18n.KeyNoDescription)),
		Posts:       make([]domain.Post, 0, len(items)),
	}
	for _, item := range items {
		feed.Posts = append(feed.Posts, domain.Post{
			ID:      uuid.NewString(),
			Title:   orDefault(ownField(item.XMLName, item.Fields, "title"), p.loc.T(i18n.KeyNoTitle)),
			Link:    orDefault(ownLink(item.XMLName, item.Fields), placeholderLink),
			FeedURL: sourceURL,
		})
	}
	p.log.Debug("Feed document parsed",
		slog.String("url", sourceURL),
		slog.Int("count", len(feed.Posts)),
	)
	return feed, nil
}

func orDefault(value, placeholder string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return placeholder
}

// decodeDocument разбирает корневой элемент и проверяет, что после него
// нет ничего, кроме пробелов, комментариев и инструкций обработки.
func decodeDocument(raw string) (*documentXML, error) {
	var doc documentXML
	decoder := xml.NewDecoder(strings.NewReader(raw))
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return nil, fmt.Errorf("unexpected element <%s> after root element", t.Name.Local)
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return nil, errors.New("unexpected text after root element")
			}
		}
	}
}
