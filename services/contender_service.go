package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"battle-seoul/models"
	"battle-seoul/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Uploader stores binary media and returns a public URL for it.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// ContenderInput is a new submission. Image uploads carry bytes in Image; every
// other platform, and hosted images, use Link.
type ContenderInput struct {
	CreatorID        string
	Title            string
	Category         models.Category
	Platform         models.Platform
	Link             string
	Image            []byte
	ImageContentType string
	ImageExt         string
}

type ContenderService struct {
	Store    *ContenderStore
	Uploader Uploader
	Clock    clockwork.Clock
	Logger   *zap.Logger
}

func NewContenderService(db *gorm.DB, uploader Uploader, clock clockwork.Clock, logger *zap.Logger) *ContenderService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContenderService{
		Store:    NewContenderStore(db),
		Uploader: uploader,
		Clock:    clock,
		Logger:   logger.Named("contenders"),
	}
}

// CreateContender validates a submission, resolves its media and stores it as available.
func (s *ContenderService) CreateContender(ctx context.Context, in ContenderInput) (*models.Contender, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.CreatorID == "" || in.Title == "" {
		return nil, fmt.Errorf("%w: creator and title are required", ErrInvalidInput)
	}
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	if !in.Platform.Valid() {
		return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, in.Platform)
	}

	id := uuid.NewString()
	payload, err := s.resolveMedia(ctx, id, in)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	c := &models.Contender{
		ID:        id,
		CreatorID: in.CreatorID,
		Title:     in.Title,
		Slug:      slug.Make(in.Title) + "-" + id[:8],
		Category:  in.Category,
		Platform:  in.Platform,
		Media:     models.NewMediaRef(payload),
		Status:    models.ContenderAvailable,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateContender(ctx, c); err != nil {
		return nil, err
	}

	s.Logger.Info("contender created",
		zap.String("contender_id", c.ID),
		zap.String("category", string(c.Category)),
		zap.String("platform", string(c.Platform)))
	return c, nil
}

func (s *ContenderService) resolveMedia(ctx context.Context, id string, in ContenderInput) (models.MediaPayload, error) {
	if in.Platform == models.PlatformImage && len(in.Image) > 0 {
		if s.Uploader == nil {
			return nil, fmt.Errorf("%w: image uploads are not configured", ErrInvalidInput)
		}
		key := fmt.Sprintf("contenders/%s/%s%s", in.Category, id, in.ImageExt)
		url, err := s.Uploader.Upload(ctx, key, in.ImageContentType, bytes.NewReader(in.Image))
		if err != nil {
			return nil, err
		}
		return models.ImageMedia{URL: url}, nil
	}

	if in.Link == "" {
		return nil, fmt.Errorf("%w: a media link is required", ErrInvalidInput)
	}
	payload, err := utils.ParseMediaLink(in.Platform, in.Link)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return payload, nil
}

func (s *ContenderService) ListAvailable(ctx context.Context, category models.Category) ([]models.Contender, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	return s.Store.GetAvailableContenders(ctx, category)
}

func (s *ContenderService) GetContender(ctx context.Context, id string) (*models.Contender, error) {
	return s.Store.GetContender(ctx, id)
}

// RecordEngagement adds like and view deltas to a contender's counters.
func (s *ContenderService) RecordEngagement(ctx context.Context, id string, likes, views int64) (*models.Contender, error) {
	if likes < 0 || views < 0 || (likes == 0 && views == 0) {
		return nil, fmt.Errorf("%w: engagement deltas must be positive", ErrInvalidInput)
	}
	if err := s.Store.AddEngagement(ctx, id, likes, views); err != nil {
		return nil, err
	}
	return s.Store.GetContender(ctx, id)
}
