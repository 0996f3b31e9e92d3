package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func posts(feedURL string, links ...string) []Post {
	out := make([]Post, 0, len(links))
	for _, l := range links {
		out = append(out, Post{ID: l + "-id", Title: l, Link: l, FeedURL: feedURL})
	}
	return out
}

func links(ps []Post) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Link)
	}
	return out
}

func TestMergePosts_PrependsOnlyNewLinks(t *testing.T) {
	feed := Feed{URL: "https://a.test/feed.xml"}
	existing := posts(feed.URL, "L1", "L2")

	merged, accepted := MergePosts(existing, []FeedPosts{{Feed: feed, Posts: posts(feed.URL, "L1", "L2", "L3")}})

	assert.Equal(t, []string{"L3", "L1", "L2"}, links(merged))
	assert.Equal(t, []string{"L3"}, links(accepted))
}

func TestMergePosts_RegistrationOrderAcrossFeeds(t *testing.T) {
	a := Feed{URL: "https://a.test/feed.xml"}
	b := Feed{URL: "https://b.test/feed.xml"}
	existing := posts(a.URL, "OLD")

	merged, _ := MergePosts(existing, []FeedPosts{
		{Feed: a, Posts: posts(a.URL, "A1", "A2")},
		{Feed: b, Posts: posts(b.URL, "B1", "A1", "B2")},
	})

	assert.Equal(t, []string{"A1", "A2", "B1", "B2", "OLD"}, links(merged))
	assert.Equal(t, a.URL, merged[0].FeedURL)
}

func TestMergePosts_DuplicatesInsideOneBatch(t *testing.T) {
	a := Feed{URL: "https://a.test/feed.xml"}

	merged, accepted := MergePosts(nil, []FeedPosts{{Feed: a, Posts: posts(a.URL, "#", "L1", "#")}})

	assert.Equal(t, []string{"#", "L1"}, links(merged))
	assert.Len(t, accepted, 2)
}

func TestMergePosts_Idempotent(t *testing.T) {
	a := Feed{URL: "https://a.test/feed.xml"}
	batches := []FeedPosts{{Feed: a, Posts: posts(a.URL, "L1", "L2")}}

	first, accepted := MergePosts(nil, batches)
	require.Len(t, accepted, 2)

	second, accepted := MergePosts(first, batches)
	assert.Empty(t, accepted)
	assert.Equal(t, first, second)
}

func TestMergePosts_NoBatches(t *testing.T) {
	existing := posts("u", "L1")
	merged, accepted := MergePosts(existing, nil)
	assert.Equal(t, existing, merged)
	assert.Nil(t, accepted)
}
