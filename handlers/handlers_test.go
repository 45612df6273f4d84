package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"battle-seoul/config"
	"battle-seoul/middleware"
	"battle-seoul/models"
	"battle-seoul/services"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testToken = "gateway-secret"

type testServer struct {
	App        *fiber.App
	Clock      *clockwork.FakeClock
	Contenders *services.ContenderService
	Matching   *services.MatchingService
}

func newTestServer(t *testing.T) *testServer {
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

	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)

	points := services.NewPointsService(db, clock, log)
	contenders := services.NewContenderService(db, nil, clock, log)
	matching := services.NewMatchingService(db, config.DefaultMatching(), config.DefaultScoring(), clock, log)
	voting := services.NewVotingService(db, points, 10, clock, log)
	stream := services.NewBattleStreamService(db, clock, log)

	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(log)})
	app.Use(middleware.GatewayAuthMiddleware(testToken, log))
	SetupContenderRoutes(app, contenders)
	SetupBattleRoutes(app, matching, voting, stream)
	SetupProgressionRoutes(app, points)

	return &testServer{App: app, Clock: clock, Contenders: contenders, Matching: matching}
}

func (s *testServer) do(t *testing.T, method, path, userID, roles string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+testToken)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if roles != "" {
		req.Header.Set("X-User-Roles", roles)
	}

	resp, err := s.App.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (s *testServer) seedBattle(t *testing.T) *models.Battle {
	t.Helper()
	a, err := s.Contenders.CreateContender(context.Background(), services.ContenderInput{
		CreatorID: "alice", Title: "Alice's cover", Category: models.CategoryMusic,
		Platform: models.PlatformYouTube, Link: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	})
	require.NoError(t, err)
	b, err := s.Contenders.CreateContender(context.Background(), services.ContenderInput{
		CreatorID: "bob", Title: "Bob's cover", Category: models.CategoryMusic,
		Platform: models.PlatformImage, Link: "https://cdn.example/bob.png",
	})
	require.NoError(t, err)
	battle, err := s.Matching.CreateManualBattle(context.Background(), "alice", a.ID, b.ID)
	require.NoError(t, err)
	return battle
}

func TestGatewayTokenRequired(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/contenders", nil)
	resp, err := srv.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = srv.do(t, http.MethodGet, "/contenders", "", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCreateContenderRoute(t *testing.T) {
	srv := newTestServer(t)
	body := fiber.Map{
		"title":    "Kimchi stew",
		"category": "food",
		"platform": "instagram",
		"link":     "https://www.instagram.com/p/Cxyz987/",
	}

	resp, _ := srv.do(t, http.MethodPost, "/contenders", "", "", body)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, out := srv.do(t, http.MethodPost, "/contenders", "chef", "", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "chef", out["creator_id"])
	assert.Equal(t, "available", out["status"])

	body["category"] = "sports"
	resp, out = srv.do(t, http.MethodPost, "/contenders", "chef", "", body)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["error"], "unknown category")

	resp, _ = srv.do(t, http.MethodGet, "/contenders/"+uuid.NewString(), "", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestVoteRouteStatuses(t *testing.T) {
	srv := newTestServer(t)
	battle := srv.seedBattle(t)
	path := "/battles/" + battle.ID + "/votes"

	resp, out := srv.do(t, http.MethodPost, path, "voter-1", "", fiber.Map{"side": "itemA"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])

	resp, out = srv.do(t, http.MethodPost, path, "voter-1", "", fiber.Map{"side": "itemB"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_voted", out["reason"])
	assert.Equal(t, "itemA", out["previousSide"])
	assert.NotEmpty(t, out["message"])

	resp, _ = srv.do(t, http.MethodPost, path, "voter-2", "", fiber.Map{"side": "middle"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, out = srv.do(t, http.MethodPost, "/battles/"+uuid.NewString()+"/votes", "voter-2", "", fiber.Map{"side": "itemA"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "battle_not_found", out["reason"])

	srv.Clock.Advance(73 * time.Hour)
	resp, out = srv.do(t, http.MethodPost, path, "voter-3", "", fiber.Map{"side": "itemB"})
	assert.Equal(t, fiber.StatusGone, resp.StatusCode)
	assert.Equal(t, "battle_ended", out["reason"])

	resp, out = srv.do(t, http.MethodGet, "/users/me/points", "voter-1", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(10), out["total_points"])
}

func TestMatchingRunRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := srv.do(t, http.MethodPost, "/matching/run", "someone", "", fiber.Map{"force": true})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, out := srv.do(t, http.MethodPost, "/matching/run", "someone", "", nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "insufficient_contenders", out["reason"])

	srv.seedBattle(t)
	for _, creator := range []string{"carol", "dave"} {
		_, err := srv.Contenders.CreateContender(context.Background(), services.ContenderInput{
			CreatorID: creator, Title: creator + " outfit", Category: models.CategoryFashion,
			Platform: models.PlatformImage, Link: "https://cdn.example/" + creator + ".jpg",
		})
		require.NoError(t, err)
	}

	resp, out = srv.do(t, http.MethodPost, "/matching/run", "someone", "", fiber.Map{"max_matches": 2})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(1), out["matchesCreated"])

	resp, out = srv.do(t, http.MethodPost, "/matching/run", "someone", "", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "cooldown", out["reason"])
	assert.NotNil(t, out["nextMatchingTime"])

	resp, out = srv.do(t, http.MethodGet, "/matching/stats", "", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), out["totalAvailableContenders"])

	resp, out = srv.do(t, http.MethodGet, "/battles?status=active", "", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), out["count"])

	// Past the end time, before any sweep has run.
	srv.Clock.Advance(73 * time.Hour)
	resp, out = srv.do(t, http.MethodGet, "/battles?status=active", "", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), out["count"])

	resp, out = srv.do(t, http.MethodGet, "/battles?status=ended", "", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), out["count"])
}

func TestManualBattleRoute(t *testing.T) {
	srv := newTestServer(t)
	mine, err := srv.Contenders.CreateContender(context.Background(), services.ContenderInput{
		CreatorID: "me", Title: "Mine", Category: models.CategoryFood,
		Platform: models.PlatformImage, Link: "https://cdn.example/me.png",
	})
	require.NoError(t, err)
	theirs, err := srv.Contenders.CreateContender(context.Background(), services.ContenderInput{
		CreatorID: "them", Title: "Theirs", Category: models.CategoryFood,
		Platform: models.PlatformImage, Link: "https://cdn.example/them.png",
	})
	require.NoError(t, err)

	body := fiber.Map{"contender_a_id": mine.ID, "contender_b_id": theirs.ID}
	resp, _ := srv.do(t, http.MethodPost, "/battles", "stranger", "", body)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, out := srv.do(t, http.MethodPost, "/battles", "me", "", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "manual", out["matchingMethod"])

	resp, _ = srv.do(t, http.MethodPost, "/battles", "me", "", body)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestBattleStreamEndedBattle(t *testing.T) {
	srv := newTestServer(t)
	battle := srv.seedBattle(t)
	srv.Clock.Advance(73 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/battles/"+battle.ID+"/stream", nil)
	req.Header.Set(fiber.HeaderAuthorization, testToken)
	resp, err := srv.App.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get(fiber.HeaderContentType))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "event: tally\n")
	assert.Contains(t, text, `"status":"ended"`)
	assert.Contains(t, text, "event: ended\n")

	req = httptest.NewRequest(http.MethodGet, "/battles/"+uuid.NewString()+"/stream", nil)
	req.Header.Set(fiber.HeaderAuthorization, testToken)
	resp, err = srv.App.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAdminGrantRequiresRole(t *testing.T) {
	srv := newTestServer(t)
	body := fiber.Map{"user_id": "lucky", "points": 150}

	resp, _ := srv.do(t, http.MethodPost, "/admin/points/grant", "mod", "", body)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, out := srv.do(t, http.MethodPost, "/admin/points/grant", "mod", "admin", body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(150), out["total_points"])
	assert.Equal(t, float64(2), out["level"])

	resp, _ = srv.do(t, http.MethodPost, "/admin/points/grant", "mod", "admin",
		fiber.Map{"user_id": "lucky", "points": 10, "reason": "battle_vote"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, out = srv.do(t, http.MethodGet, "/users/me/points", "lucky", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(150), out["total_points"])
	assert.Equal(t, float64(0), out["votes_cast"])
}

func TestStatusForReason(t *testing.T) {
	assert.Equal(t, fiber.StatusTooManyRequests, StatusForReason(models.ReasonCooldown))
	assert.Equal(t, fiber.StatusGone, StatusForReason(models.ReasonBattleEnded))
	assert.Equal(t, fiber.StatusBadRequest, StatusForReason(models.ReasonNone))
}
