package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArticle_Validate_RequiresTitleAndURL(t *testing.T) {
	a := Article{}
	err := a.Validate()
	assert.Error(t, err)

	a = Article{Title: "headline"}
	err = a.Validate()
	assert.Error(t, err)

	a = Article{Title: "headline", URL: "https://example.com/a"}
	assert.NoError(t, a.Validate())
}

func TestArticle_ZeroValue(t *testing.T) {
	var article Article

	assert.Equal(t, int64(0), article.ID)
	assert.Nil(t, article.FeedID)
	assert.Equal(t, "", article.Title)
	assert.Equal(t, "", article.URL)
	assert.True(t, article.PublishedAt.IsZero())
}

func TestArticle_NullableFeedID(t *testing.T) {
	article := Article{Title: "t", URL: "https://example.com"}
	assert.Nil(t, article.FeedID)

	var feedID int64 = 42
	article.FeedID = &feedID
	assert.Equal(t, int64(42), *article.FeedID)
}

func TestArticle_WithAllFields(t *testing.T) {
	publishedAt := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	fetchedAt := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)
	var feedID int64 = 7

	article := Article{
		ID:           123,
		FeedID:       &feedID,
		Title:        "Complete Article",
		URL:          "https://example.com/complete",
		Description:  "A complete article",
		Language:     "zh-CN",
		SourceDomain: "example.com",
		PublishedAt:  publishedAt,
		FetchedAt:    fetchedAt,
		ClickCount:   3,
		CanonicalID:  123,
	}

	assert.NoError(t, article.Validate())
	assert.Equal(t, int64(123), article.CanonicalID)
	assert.Equal(t, int64(3), article.ClickCount)
}
