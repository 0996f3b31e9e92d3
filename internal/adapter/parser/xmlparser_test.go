package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rssreader/internal/domain"
	"rssreader/internal/i18n"
	"rssreader/internal/logger"
)

const sourceURL = "https://a.test/feed.xml"

func newParser(lang string) *XMLParser {
	return NewXMLParser(i18n.New(lang), logger.Discard())
}

func TestXMLParser_Parse_Success(t *testing.T) {
	xmlData := `<?xml version="1.0" encoding="UTF-8"?>
	<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
	<channel>
	<title>Test Feed</title>
	<link>https://example.com</link>
	<atom:link href="https://a.test/feed.xml" rel="self"/>
	<description>Test Description</description>
	<item>
	<title>Item 1</title>
	<link>https://example.com/item1</link>
	<description>Item 1 Description</description>
	</item>
	<item>
	<title>Item 2</title>
	<link>https://example.com/item2</link>
	</item>
	</channel>
	</rss>`

	feed, err := newParser("en").Parse(context.Background(), xmlData, sourceURL)

	require.NoError(t, err)
	require.NotNil(t, feed)
	assert.Equal(t, "Test Feed", feed.Title)
	assert.Equal(t, "Test Description", feed.Description)
	require.Len(t, feed.Posts, 2)

	assert.Equal(t, "Item 1", feed.Posts[0].Title)
	assert.Equal(t, "https://example.com/item1", feed.Posts[0].Link)
	assert.Equal(t, "Item 2", feed.Posts[1].Title)
	assert.Equal(t, "https://example.com/item2", feed.Posts[1].Link)
	for _, p := range feed.Posts {
		assert.Equal(t, sourceURL, p.FeedURL)
		assert.NotEmpty(t, p.ID)
	}
	assert.NotEqual(t, feed.Posts[0].ID, feed.Posts[1].ID)
}

func TestXMLParser_Parse_Fallbacks(t *testing.T) {
	xmlData := `<rss><channel>
	<item><link>https://example.com/untitled</link></item>
	<item><title>No link</title></item>
	<item><title>  </title><link></link></item>
	</channel></rss>`

	feed, err := newParser("ru").Parse(context.Background(), xmlData, sourceURL)

	require.NoError(t, err)
	assert.Equal(t, "Без названия", feed.Title)
	assert.Equal(t, "Без описания", feed.Description)
	require.Len(t, feed.Posts, 3)
	assert.Equal(t, "Без названия", feed.Posts[0].Title)
	assert.Equal(t, "https://example.com/untitled", feed.Posts[0].Link)
	assert.Equal(t, "No link", feed.Posts[1].Title)
	assert.Equal(t, "#", feed.Posts[1].Link)
	assert.Equal(t, "Без названия", feed.Posts[2].Title)
	assert.Equal(t, "#", feed.Posts[2].Link)
}

func TestXMLParser_Parse_RDFItemsBesideChannel(t *testing.T) {
	xmlData := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://purl.org/rss/1.0/">
	<channel><title>RDF Feed</title><description>RSS 1.0</description></channel>
	<item><title>First</title><link>https://example.com/1</link></item>
	<item><title>Second</title><link>https://example.com/2</link></item>
	</rdf:RDF>`

	feed, err := newParser("en").Parse(context.Background(), xmlData, sourceURL)

	require.NoError(t, err)
	assert.Equal(t, "RDF Feed", feed.Title)
	require.Len(t, feed.Posts, 2)
	assert.Equal(t, "https://example.com/1", feed.Posts[0].Link)
	assert.Equal(t, "https://example.com/2", feed.Posts[1].Link)
}

func TestXMLParser_Parse_InvalidXML(t *testing.T) {
	invalidXML := `
	<rss>
	<channel>
	<title>Test Feed</title>
	<invalid-tag>
	</channel>
	</rss>`

	feed, err := newParser("en").Parse(context.Background(), invalidXML, sourceURL)

	require.Error(t, err)
	assert.Nil(t, feed)
	assert.True(t, errors.Is(err, domain.ErrParse))
	assert.Contains(t, err.Error(), "failed to decode XML")
}

func TestXMLParser_Parse_NoChannel(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"atom", `<feed xmlns="http://www.w3.org/2005/Atom"><title>Atom</title><entry><title>x</title></entry></feed>`},
		{"html", `<html><body><p>Not a feed</p></body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed, err := newParser("en").Parse(context.Background(), tt.raw, sourceURL)

			assert.Nil(t, feed)
			assert.True(t, errors.Is(err, domain.ErrParse))
			assert.Contains(t, err.Error(), "no channel element")
		})
	}
}

func TestXMLParser_Parse_EmptyDocument(t *testing.T) {
	feed, err := newParser("en").Parse(context.Background(), "", sourceURL)

	assert.Nil(t, feed)
	assert.True(t, errors.Is(err, domain.ErrParse))
}

func TestXMLParser_Parse_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feed, err := newParser("en").Parse(ctx, `<rss><channel></channel></rss>`, sourceURL)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, feed)
}

func TestXMLParser_Parse_EmptyFeed(t *testing.T) {
	xmlData := `
	<rss>
	<channel>
	<title>Empty Feed</title>
	<description>Empty Description</description>
	</channel>
	</rss>`

	feed, err := newParser("en").Parse(context.Background(), xmlData, sourceURL)

	require.NoError(t, err)
	assert.Equal(t, "Empty Feed", feed.Title)
	assert.Equal(t, "Empty Description", feed.Description)
	assert.Empty(t, feed.Posts)
}

func TestXMLParser_Parse_IgnoresNamespacedSiblings(t *testing.T) {
	xmlData := `<rss version="2.0"
	xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"
	xmlns:media="http://search.yahoo.com/mrss/">
	<channel>
	<title>Podcast</title>
	<itunes:title>Other</itunes:title>
	<description>Real description</description>
	<itunes:description></itunes:description>
	<item>
	<title>Real</title>
	<media:title>Media</media:title>
	<itunes:title>Episode</itunes:title>
	<link>https://example.com/ep1</link>
	</item>
	<item>
	<media:title>Only media</media:title>
	<link>https://example.com/ep2</link>
	</item>
	</channel>
	</rss>`

	feed, err := newParser("en").Parse(context.Background(), xmlData, sourceURL)

	require.NoError(t, err)
	assert.Equal(t, "Podcast", feed.Title)
	assert.Equal(t, "Real description", feed.Description)
	require.Len(t, feed.Posts, 2)
	assert.Equal(t, "Real", feed.Posts[0].Title)
	assert.Equal(t, "https://example.com/ep1", feed.Posts[0].Link)
	assert.Equal(t, "No title", feed.Posts[1].Title)
}

func TestXMLParser_Parse_FirstTitleWins(t *testing.T) {
	xmlData := `<rss><channel><title>First</title><title>Second</title>
	<item><title>One</title><title>Two</title><link>https://example.com/1</link></item>
	</channel></rss>`

	feed, err := newParser("en").Parse(context.Background(), xmlData, sourceURL)

	require.NoError(t, err)
	assert.Equal(t, "First", feed.Title)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, "One", feed.Posts[0].Title)
}

func TestXMLParser_Parse_ChannelRoot(t *testing.T) {
	xmlData := `<channel><title>T</title><description>D</description>
	<item><title>Only</title><link>https://example.com/only</link></item>
	</channel>`

	feed, err := newParser("en").Parse(context.Background(), xmlData, sourceURL)

	require.NoError(t, err)
	assert.Equal(t, "T", feed.Title)
	assert.Equal(t, "D", feed.Description)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, "Only", feed.Posts[0].Title)
	assert.Equal(t, "https://example.com/only", feed.Posts[0].Link)
}

func TestXMLParser_Parse_TrailingContent(t *testing.T) {
	valid := `<rss><channel><title>T</title><item><title>x</title><link>https://example.com/x</link></item></channel></rss>`
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"broken markup", valid + `<oops <<<`, true},
		{"second root", valid + `<rss></rss>`, true},
		{"text", valid + `garbage`, true},
		{"whitespace and comment", valid + "\n<!-- generated -->\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed, err := newParser("en").Parse(context.Background(), tt.raw, sourceURL)

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Len(t, feed.Posts, 1)
				return
			}
			assert.Nil(t, feed)
			assert.True(t, errors.Is(err, domain.ErrParse))
		})
	}
}
