package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"battle-seoul/config"
	"battle-seoul/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testEpoch = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AutoMigrateModels()...))
	return db
}

type testEnv struct {
	DB       *gorm.DB
	Clock    *clockwork.FakeClock
	Matching *MatchingService
	Voting   *VotingService
	Points   *PointsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(testEpoch)
	log := zaptest.NewLogger(t)

	points := NewPointsService(db, clock, log)
	return &testEnv{
		DB:       db,
		Clock:    clock,
		Matching: NewMatchingService(db, config.DefaultMatching(), config.DefaultScoring(), clock, log),
		Voting:   NewVotingService(db, points, 10, clock, log),
		Points:   points,
	}
}

func (e *testEnv) seedContender(t *testing.T, creator string, category models.Category, platform models.Platform) models.Contender {
	t.Helper()
	id := uuid.NewString()
	c := models.Contender{
		ID:        id,
		CreatorID: creator,
		Title:     "entry by " + creator,
		Slug:      "entry-" + id,
		Category:  category,
		Platform:  platform,
		Media:     models.NewMediaRef(models.ImageMedia{URL: "https://cdn.example/" + id + ".png"}),
		Status:    models.ContenderAvailable,
		Version:   1,
		CreatedAt: e.Clock.Now(),
		UpdatedAt: e.Clock.Now(),
	}
	require.NoError(t, e.DB.Create(&c).Error)
	return c
}

func (e *testEnv) seedBattle(t *testing.T, votesA, votesB int64) *models.Battle {
	t.Helper()
	a := e.seedContender(t, "creator-"+uuid.NewString()[:6], models.CategoryMusic, models.PlatformImage)
	b := e.seedContender(t, "creator-"+uuid.NewString()[:6], models.CategoryMusic, models.PlatformYouTube)
	battle, err := e.Matching.CreateManualBattle(context.Background(), a.CreatorID, a.ID, b.ID)
	require.NoError(t, err)

	if votesA > 0 || votesB > 0 {
		battle.ItemA.Votes = votesA
		battle.ItemB.Votes = votesB
		battle.TotalVotes = votesA + votesB
		battle.RecomputeLeader()
		require.NoError(t, NewBattleStore(e.DB).UpdateTallies(context.Background(), battle))
	}
	return battle
}

func (e *testEnv) contenderStatus(t *testing.T, id string) models.ContenderStatus {
	t.Helper()
	var c models.Contender
	require.NoError(t, e.DB.Where("id = ?", id).First(&c).Error)
	return c.Status
}
