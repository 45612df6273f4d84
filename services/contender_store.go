package services

import (
	"context"
	"errors"
	"fmt"

	"battle-seoul/models"

	"gorm.io/gorm"
)

// ContenderStore is the persistence accessor for contenders.
type ContenderStore struct {
	DB *gorm.DB
}

func NewContenderStore(db *gorm.DB) *ContenderStore {
	return &ContenderStore{DB: db}
}

// WithTx returns a store bound to an open transaction.
func (s *ContenderStore) WithTx(tx *gorm.DB) *ContenderStore {
	return &ContenderStore{DB: tx}
}

// GetAvailableContenders lists available contenders, optionally limited to one category.
func (s *ContenderStore) GetAvailableContenders(ctx context.Context, category models.Category) ([]models.Contender, error) {
	q := s.DB.WithContext(ctx).Where("status = ?", models.ContenderAvailable)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var contenders []models.Contender
	if err := q.Order("created_at ASC, id ASC").Find(&contenders).Error; err != nil {
		return nil, fmt.Errorf("list available contenders: %w", err)
	}
	return contenders, nil
}

// AvailablePool groups every available contender by category.
func (s *ContenderStore) AvailablePool(ctx context.Context) (map[models.Category][]models.Contender, error) {
	contenders, err := s.GetAvailableContenders(ctx, "")
	if err != nil {
		return nil, err
	}
	pool := make(map[models.Category][]models.Contender)
	for _, c := range contenders {
		pool[c.Category] = append(pool[c.Category], c)
	}
	return pool, nil
}

func (s *ContenderStore) GetContender(ctx context.Context, id string) (*models.Contender, error) {
	var c models.Contender
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContenderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contender %s: %w", id, err)
	}
	return &c, nil
}

// GetContenders loads several contenders keyed by id. Missing ids are simply absent.
func (s *ContenderStore) GetContenders(ctx context.Context, ids ...string) (map[string]models.Contender, error) {
	var list []models.Contender
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("get contenders: %w", err)
	}
	out := make(map[string]models.Contender, len(list))
	for _, c := range list {
		out[c.ID] = c
	}
	return out, nil
}

func (s *ContenderStore) CreateContender(ctx context.Context, c *models.Contender) error {
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create contender: %w", err)
	}
	return nil
}

// MarkMatched flips every id from available to matched in a single conditional
// update. If any row was already consumed the update affects fewer rows and
// ErrContenderUnavailable is returned; callers must roll back.
func (s *ContenderStore) MarkMatched(ctx context.Context, ids ...string) error {
	res := s.DB.WithContext(ctx).Model(&models.Contender{}).
		Where("id IN ? AND status = ?", ids, models.ContenderAvailable).
		Updates(map[string]interface{}{
			"status":  models.ContenderMatched,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("mark contenders matched: %w", res.Error)
	}
	if res.RowsAffected != int64(len(ids)) {
		return ErrContenderUnavailable
	}
	return nil
}

// AddEngagement increments like and view counters in place.
func (s *ContenderStore) AddEngagement(ctx context.Context, id string, likes, views int64) error {
	res := s.DB.WithContext(ctx).Model(&models.Contender{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"likes": gorm.Expr("likes + ?", likes),
			"views": gorm.Expr("views + ?", views),
		})
	if res.Error != nil {
		return fmt.Errorf("add engagement to %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrContenderNotFound
	}
	return nil
}

// CountAvailableByCategory returns the per-category size of the available pool.
func (s *ContenderStore) CountAvailableByCategory(ctx context.Context) (map[models.Category]int64, error) {
	type row struct {
		Category models.Category
		Count    int64
	}
	var rows []row
	err := s.DB.WithContext(ctx).Model(&models.Contender{}).
		Select("category, COUNT(*) AS count").
		Where("status = ?", models.ContenderAvailable).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count available contenders: %w", err)
	}
	out := make(map[models.Category]int64, len(models.Categories))
	for _, c := range models.Categories {
		out[c] = 0
	}
	for _, r := range rows {
		out[r.Category] = r.Count
	}
	return out, nil
}
