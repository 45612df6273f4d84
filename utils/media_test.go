package utils

import (
	"errors"
	"testing"

	"battle-seoul/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMediaLinkYouTube(t *testing.T) {
	cases := []struct {
		name  string
		link  string
		id    string
		start int
		end   int
		embed string
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", 0, 0, "https://www.youtube.com/embed/dQw4w9WgXcQ"},
		{"short link with t", "https://youtu.be/dQw4w9WgXcQ?t=1m30s", "dQw4w9WgXcQ", 90, 0, "https://www.youtube.com/embed/dQw4w9WgXcQ?start=90"},
		{"shorts", "https://youtube.com/shorts/abcdefghijk", "abcdefghijk", 0, 0, "https://www.youtube.com/embed/abcdefghijk"},
		{"start and end", "https://m.youtube.com/watch?v=dQw4w9WgXcQ&start=10&end=40", "dQw4w9WgXcQ", 10, 40, "https://www.youtube.com/embed/dQw4w9WgXcQ?end=40&start=10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := ParseMediaLink(models.PlatformYouTube, tc.link)
			require.NoError(t, err)
			yt, ok := payload.(models.YouTubeMedia)
			require.True(t, ok)
			assert.Equal(t, tc.id, yt.VideoID)
			assert.Equal(t, tc.start, yt.StartSeconds)
			assert.Equal(t, tc.end, yt.EndSeconds)
			assert.Equal(t, tc.embed, yt.EmbedURL)
		})
	}
}

func TestParseMediaLinkYouTubeRejectsBadTrim(t *testing.T) {
	_, err := ParseMediaLink(models.PlatformYouTube, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&start=40&end=10")
	assert.Error(t, err)
}

func TestParseMediaLinkTikTok(t *testing.T) {
	payload, err := ParseMediaLink(models.PlatformTikTok, "https://www.tiktok.com/@seoul.eats/video/7234567890123456789?lang=ko")
	require.NoError(t, err)
	assert.Equal(t, models.TikTokMedia{
		VideoID:  "7234567890123456789",
		EmbedURL: "https://www.tiktok.com/embed/v2/7234567890123456789",
	}, payload)
}

func TestParseMediaLinkInstagram(t *testing.T) {
	payload, err := ParseMediaLink(models.PlatformInstagram, "https://www.instagram.com/reel/Cx1_abc-9/")
	require.NoError(t, err)
	assert.Equal(t, models.InstagramMedia{
		Shortcode: "Cx1_abc-9",
		EmbedURL:  "https://www.instagram.com/reel/Cx1_abc-9/embed",
	}, payload)
}

func TestParseMediaLinkRejectsWrongHost(t *testing.T) {
	_, err := ParseMediaLink(models.PlatformTikTok, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	assert.True(t, errors.Is(err, ErrUnsupportedLink))

	_, err = ParseMediaLink(models.PlatformInstagram, "not a url")
	assert.True(t, errors.Is(err, ErrUnsupportedLink))
}

func TestParseTimestamp(t *testing.T) {
	assert.Equal(t, 0, ParseTimestamp(""))
	assert.Equal(t, 42, ParseTimestamp("42"))
	assert.Equal(t, 42, ParseTimestamp("42s"))
	assert.Equal(t, 3723, ParseTimestamp("1h2m3s"))
	assert.Equal(t, 0, ParseTimestamp("soon"))
}
