package utils

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"battle-seoul/models"
)

var (
	ErrUnsupportedLink = errors.New("unsupported media link")

	youtubeIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	tiktokIDPattern   = regexp.MustCompile(`^[0-9]+$`)
	shortcodePattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	durationPartRegex = regexp.MustCompile(`(\d+)([hms])`)
)

// ParseMediaLink turns a share link into the media payload for the given platform.
func ParseMediaLink(platform models.Platform, link string) (models.MediaPayload, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLink, link)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	switch platform {
	case models.PlatformYouTube:
		return parseYouTube(host, u)
	case models.PlatformTikTok:
		return parseTikTok(host, u)
	case models.PlatformInstagram:
		return parseInstagram(host, u)
	case models.PlatformImage:
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%w: image url must be http(s)", ErrUnsupportedLink)
		}
		return models.ImageMedia{URL: u.String()}, nil
	}
	return nil, fmt.Errorf("%w: unknown platform %q", ErrUnsupportedLink, platform)
}

func parseYouTube(host string, u *url.URL) (models.MediaPayload, error) {
	var id string
	segments := pathSegments(u.Path)

	switch host {
	case "youtu.be":
		if len(segments) > 0 {
			id = segments[0]
		}
	case "youtube.com", "music.youtube.com":
		switch {
		case len(segments) == 1 && segments[0] == "watch":
			id = u.Query().Get("v")
		case len(segments) >= 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live"):
			id = segments[1]
		}
	default:
		return nil, fmt.Errorf("%w: not a youtube host", ErrUnsupportedLink)
	}

	if !youtubeIDPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: missing youtube video id", ErrUnsupportedLink)
	}

	q := u.Query()
	start := ParseTimestamp(q.Get("t"))
	if s := ParseTimestamp(q.Get("start")); s > 0 {
		start = s
	}
	end := ParseTimestamp(q.Get("end"))

	embed := "https://www.youtube.com/embed/" + id
	params := url.Values{}
	if start > 0 {
		params.Set("start", strconv.Itoa(start))
	}
	if end > 0 {
		params.Set("end", strconv.Itoa(end))
	}
	if len(params) > 0 {
		embed += "?" + params.Encode()
	}

	media := models.YouTubeMedia{VideoID: id, EmbedURL: embed, StartSeconds: start, EndSeconds: end}
	if err := media.Validate(); err != nil {
		return nil, err
	}
	return media, nil
}

func parseTikTok(host string, u *url.URL) (models.MediaPayload, error) {
	if host != "tiktok.com" {
		return nil, fmt.Errorf("%w: not a tiktok host", ErrUnsupportedLink)
	}
	segments := pathSegments(u.Path)
	for i := 0; i < len(segments)-1; i++ {
		if segments[i] == "video" && tiktokIDPattern.MatchString(segments[i+1]) {
			id := segments[i+1]
			return models.TikTokMedia{
				VideoID:  id,
				EmbedURL: "https://www.tiktok.com/embed/v2/" + id,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: missing tiktok video id", ErrUnsupportedLink)
}

func parseInstagram(host string, u *url.URL) (models.MediaPayload, error) {
	if host != "instagram.com" {
		return nil, fmt.Errorf("%w: not an instagram host", ErrUnsupportedLink)
	}
	segments := pathSegments(u.Path)
	if len(segments) >= 2 && (segments[0] == "p" || segments[0] == "reel") && shortcodePattern.MatchString(segments[1]) {
		code := segments[1]
		return models.InstagramMedia{
			Shortcode: code,
			EmbedURL:  fmt.Sprintf("https://www.instagram.com/%s/%s/embed", segments[0], code),
		}, nil
	}
	return nil, fmt.Errorf("%w: missing instagram shortcode", ErrUnsupportedLink)
}

// ParseTimestamp accepts "90", "90s", "1m30s" or "1h2m3s" and returns seconds.
// Anything unparseable yields 0.
func ParseTimestamp(v string) int {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(strings.TrimSuffix(v, "s")); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}

	matches := durationPartRegex.FindAllStringSubmatch(v, -1)
	if len(matches) == 0 {
		return 0
	}
	total := 0
	for _, m := range matches {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "h":
			total += n * 3600
		case "m":
			total += n * 60
		case "s":
			total += n
		}
	}
	return total
}

func pathSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
