package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civictrack/road-registry/internal/model"
)

func strPtr(s string) *string { return &s }

func TestParseReviewTags(t *testing.T) {
	cases := []struct {
		name string
		raw  *string
		want []string
	}{
		{"nil", nil, []string{}},
		{"empty", strPtr(""), []string{}},
		{"simple", strPtr("pothole,cracked"), []string{"pothole", "cracked"}},
		{"whitespace and blanks", strPtr(" pothole , ,cracked, "), []string{"pothole", "cracked"}},
		{"numeric entries dropped", strPtr("pothole,42,cracked,007"), []string{"pothole", "cracked"}},
		{"mixed alphanumeric kept", strPtr("route66"), []string{"route66"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseReviewTags(tc.raw))
		})
	}
}

func TestBuildReviewListing(t *testing.T) {
	now := time.Now().UTC()
	reviews := []*model.Review{
		{UserID: 1, Tags: strPtr("pothole, flooding"), Media: strPtr("storage/review_media/a.jpg"), CreatedAt: now},
		{UserID: 2, Tags: strPtr("pothole"), CreatedAt: now},
		{UserID: 3, CreatedAt: now},
	}

	out := buildReviewListing(reviews, "http://api.example.com/")
	require.Len(t, out.Reviews, 3)

	// Tag occurrences are counted across all of the road's reviews.
	assert.Equal(t, map[string]int{"pothole": 2, "flooding": 1}, out.TagCounts)

	first := out.Reviews[0]
	assert.Equal(t, uint64(1), first.UserID)
	assert.Equal(t, []string{"pothole", "flooding"}, first.Tags)
	// The comment is the raw leading tag segment, untrimmed.
	assert.Equal(t, "pothole", first.Comment)
	require.NotNil(t, first.Media)
	assert.Equal(t, "http://api.example.com/storage/review_media/a.jpg", *first.Media)

	// No tags means no comment; no media means a null media field.
	last := out.Reviews[2]
	assert.Empty(t, last.Tags)
	assert.Equal(t, "", last.Comment)
	assert.Nil(t, last.Media)
}

func TestBuildReviewListingEmpty(t *testing.T) {
	out := buildReviewListing(nil, "http://api.example.com")
	assert.NotNil(t, out.Reviews)
	assert.NotNil(t, out.TagCounts)
	assert.Empty(t, out.Reviews)
	assert.Empty(t, out.TagCounts)
}
