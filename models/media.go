package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Platform identifies where a contender's media lives.
type Platform string

const (
	PlatformImage     Platform = "image"
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformImage, PlatformYouTube, PlatformTikTok, PlatformInstagram:
		return true
	}
	return false
}

// MediaPayload is one variant of the per-platform media union.
type MediaPayload interface {
	Platform() Platform
	Validate() error
}

type ImageMedia struct {
	URL string `json:"url"`
}

type YouTubeMedia struct {
	VideoID      string `json:"video_id"`
	EmbedURL     string `json:"embed_url"`
	StartSeconds int    `json:"start_seconds,omitempty"`
	EndSeconds   int    `json:"end_seconds,omitempty"`
}

type TikTokMedia struct {
	VideoID  string `json:"video_id"`
	EmbedURL string `json:"embed_url"`
}

type InstagramMedia struct {
	Shortcode string `json:"shortcode"`
	EmbedURL  string `json:"embed_url"`
}

func (ImageMedia) Platform() Platform     { return PlatformImage }
func (YouTubeMedia) Platform() Platform   { return PlatformYouTube }
func (TikTokMedia) Platform() Platform    { return PlatformTikTok }
func (InstagramMedia) Platform() Platform { return PlatformInstagram }

func (m ImageMedia) Validate() error {
	if m.URL == "" {
		return errors.New("image url is required")
	}
	return nil
}

func (m YouTubeMedia) Validate() error {
	if m.VideoID == "" {
		return errors.New("youtube video id is required")
	}
	if m.StartSeconds < 0 || m.EndSeconds < 0 {
		return errors.New("youtube trim must not be negative")
	}
	if m.EndSeconds > 0 && m.EndSeconds <= m.StartSeconds {
		return errors.New("youtube trim end must be after start")
	}
	return nil
}

func (m TikTokMedia) Validate() error {
	if m.VideoID == "" {
		return errors.New("tiktok video id is required")
	}
	return nil
}

func (m InstagramMedia) Validate() error {
	if m.Shortcode == "" {
		return errors.New("instagram shortcode is required")
	}
	return nil
}

// MediaRef wraps a MediaPayload so it can travel through JSON and a single DB column.
// Encoded as {"platform": "...", "data": {...}}.
type MediaRef struct {
	Payload MediaPayload
}

type mediaEnvelope struct {
	Platform Platform        `json:"platform"`
	Data     json.RawMessage `json:"data"`
}

func NewMediaRef(p MediaPayload) MediaRef {
	return MediaRef{Payload: p}
}

func (m MediaRef) Platform() Platform {
	if m.Payload == nil {
		return ""
	}
	return m.Payload.Platform()
}

func (m MediaRef) MarshalJSON() ([]byte, error) {
	if m.Payload == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(mediaEnvelope{Platform: m.Payload.Platform(), Data: data})
}

func (m *MediaRef) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		m.Payload = nil
		return nil
	}
	var env mediaEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}

	var payload MediaPayload
	switch env.Platform {
	case PlatformImage:
		var v ImageMedia
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		payload = v
	case PlatformYouTube:
		var v YouTubeMedia
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		payload = v
	case PlatformTikTok:
		var v TikTokMedia
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		payload = v
	case PlatformInstagram:
		var v InstagramMedia
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return err
		}
		payload = v
	default:
		return fmt.Errorf("unknown media platform %q", env.Platform)
	}
	m.Payload = payload
	return nil
}

// Value implements driver.Valuer
func (m MediaRef) Value() (driver.Value, error) {
	b, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *MediaRef) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		m.Payload = nil
		return nil
	case []byte:
		return m.UnmarshalJSON(v)
	case string:
		return m.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into MediaRef", src)
	}
}

func (MediaRef) GormDataType() string {
	return "json"
}

func (MediaRef) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}
