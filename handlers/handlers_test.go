package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ironquest/database"
	"ironquest/middleware"
	"ironquest/models"
	"ironquest/progression"
	"ironquest/services"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type testEnv struct {
	app  *fiber.App
	db   *gorm.DB
	auth *middleware.Auth
}

func newEnv(t *testing.T, opts ...func(*Handler)) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "api.db") + "?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.RunMigrations(db))

	require.NoError(t, db.Create(&[]models.Achievement{
		{Name: "First Sweat", GoalType: models.GoalWorkout, GoalAmount: 1, XPReward: 50, IsDefault: true},
		{Name: "On The Scale", GoalType: models.GoalBodyweight, GoalAmount: 1, XPReward: 25},
	}).Error)

	hub := services.NewHub()
	progress := services.NewProgressionService(db, services.WithNotifier(hub))
	auth := middleware.NewAuth(testSecret, time.Hour)
	h := &Handler{
		DB:       db,
		Auth:     auth,
		Progress: progress,
		Quests:   services.NewQuestService(progress),
		Activity: services.NewActivityService(progress),
		Reset:    services.NewWeeklyResetRunner(db, services.NewWeeklyResetJob(db, 0, 0, nil), nil, hub, nil, nil),
		Hub:      hub,
	}
	for _, opt := range opts {
		opt(h)
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h.Routes(app)
	return &testEnv{app: app, db: db, auth: auth}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (e *testEnv) register(t *testing.T, username string) (string, uint) {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Username: username,
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, status, body)
	user := body["user"].(map[string]interface{})
	return body["token"].(string), uint(user["id"].(float64))
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	admin := models.User{Username: "root", Password: "x", Level: 1, IsAdmin: true}
	require.NoError(t, e.db.Create(&admin).Error)
	token, err := e.auth.IssueToken(admin)
	require.NoError(t, err)
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	env := newEnv(t)
	_, userID := env.register(t, "alice")

	var entries int64
	require.NoError(t, env.db.Model(&models.UserAchievement{}).Where("user_id = ?", userID).Count(&entries).Error)
	assert.EqualValues(t, 1, entries)

	status, _ := env.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Username: "alice", Password: "another password"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "alice", Password: "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "alice", Password: "correct horse battery"})
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])
}

func TestProgressionRequiresToken(t *testing.T) {
	env := newEnv(t)

	status, body := env.do(t, http.MethodGet, "/api/progression", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])

	status, _ = env.do(t, http.MethodGet, "/api/progression", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestWorkoutFlow(t *testing.T) {
	env := newEnv(t)
	token, _ := env.register(t, "bob")

	status, body := env.do(t, http.MethodPost, "/api/workouts", token, map[string]interface{}{
		"name":  "Pull Day",
		"lifts": []map[string]interface{}{{"name": "Deadlift", "weight": 315, "reps": 3}},
	})
	require.Equal(t, http.StatusCreated, status, body)
	result := body["result"].(map[string]interface{})
	assert.Len(t, result["newly_completed"], 1)

	status, body = env.do(t, http.MethodGet, "/api/progression", token, nil)
	require.Equal(t, http.StatusOK, status)
	view := body["progression"].(map[string]interface{})
	assert.Equal(t, 945.0, view["weekly_weight_lifted"])
	assert.Equal(t, 50.0, view["xp"])

	status, _ = env.do(t, http.MethodPost, "/api/workouts", token, map[string]interface{}{"name": ""})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestApplyEventEndpoint(t *testing.T) {
	env := newEnv(t)
	token, _ := env.register(t, "carol")

	status, _ := env.do(t, http.MethodPost, "/api/progression/events", token, ApplyEventRequest{GoalTypes: []string{"DANCING"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.do(t, http.MethodPost, "/api/progression/events", token, ApplyEventRequest{GoalTypes: []string{"workout"}})
	require.Equal(t, http.StatusOK, status, body)
	result := body["result"].(map[string]interface{})
	assert.Len(t, result["newly_completed"], 1)
}

func TestAchievementOptInAndRemoval(t *testing.T) {
	env := newEnv(t)
	token, _ := env.register(t, "dave")

	var scale models.Achievement
	require.NoError(t, env.db.Where("name = ?", "On The Scale").First(&scale).Error)
	path := "/api/progression/achievements/" + itoa(scale.ID)

	status, _ := env.do(t, http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodGet, "/api/progression/achievements", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["achievements"], 2)

	status, _ = env.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodPost, "/api/progression/achievements/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestQuestEndpoints(t *testing.T) {
	env := newEnv(t)
	token, _ := env.register(t, "erin")

	status, _ := env.do(t, http.MethodPost, "/api/quests/complete", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body := env.do(t, http.MethodPut, "/api/quests", token, map[string]interface{}{"type": "LOSE", "goal": 10})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = env.do(t, http.MethodPost, "/api/quests/complete", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	quest := body["quest"].(map[string]interface{})
	assert.Equal(t, 100.0, quest["xp_awarded"])

	status, _ = env.do(t, http.MethodPut, "/api/quests", token, map[string]interface{}{"type": "BULK", "goal": 10})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPushTokenAndWeights(t *testing.T) {
	env := newEnv(t)
	token, userID := env.register(t, "finn")

	status, _ := env.do(t, http.MethodPut, "/api/users/me/push-token", token, PushTokenRequest{Token: "device-1"})
	require.Equal(t, http.StatusOK, status)
	var user models.User
	require.NoError(t, env.db.First(&user, userID).Error)
	require.NotNil(t, user.PushToken)
	assert.Equal(t, "device-1", *user.PushToken)

	status, _ = env.do(t, http.MethodPost, "/api/weights", token, LogWeightRequest{Weight: -1})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.do(t, http.MethodPost, "/api/weights", token, LogWeightRequest{Weight: 182})
	assert.Equal(t, http.StatusCreated, status)
}

func TestAdminRoutes(t *testing.T) {
	env := newEnv(t)
	userToken, _ := env.register(t, "gina")
	adminToken := env.adminToken(t)

	status, _ := env.do(t, http.MethodPost, "/api/admin/weekly-reset", userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := env.do(t, http.MethodPost, "/api/admin/weekly-reset", adminToken, nil)
	require.Equal(t, http.StatusOK, status, body)

	status, body = env.do(t, http.MethodPost, "/api/admin/achievements", adminToken, models.Achievement{
		Name: "Leg Day Legend", GoalType: models.GoalWorkout, GoalAmount: 20, XPReward: 200,
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, _ = env.do(t, http.MethodPost, "/api/admin/achievements", adminToken, models.Achievement{
		Name: "Broken", GoalType: "NAPPING", XPReward: 10,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodGet, "/api/admin/achievements", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["achievements"], 3)
}

func TestLeaderboardAndHealth(t *testing.T) {
	env := newEnv(t)
	env.register(t, "hank")
	require.NoError(t, env.db.Create(&models.User{Username: "ivy", Password: "x", Level: 4}).Error)

	status, body := env.do(t, http.MethodGet, "/api/leaderboard?category=level", "", nil)
	require.Equal(t, http.StatusOK, status)
	entries := body["entries"].([]interface{})
	require.Len(t, entries, 2)
	assert.Equal(t, "ivy", entries[0].(map[string]interface{})["username"])

	status, _ = env.do(t, http.MethodGet, "/api/leaderboard?category=wins", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestLiveFeedRejectsPlainHTTP(t *testing.T) {
	env := newEnv(t)
	token, _ := env.register(t, "jack")

	status, _ := env.do(t, http.MethodGet, "/ws/progress", token, nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)

	status, _ = env.do(t, http.MethodGet, "/ws/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestApplyEventIgnoresClientLevel(t *testing.T) {
	env := newEnv(t)
	token, userID := env.register(t, "kim")

	level := models.Achievement{Name: "Level 25", GoalType: models.GoalLevel, GoalAmount: 25, XPReward: 750}
	require.NoError(t, env.db.Create(&level).Error)
	status, _ := env.do(t, http.MethodPost, "/api/progression/achievements/"+itoa(level.ID), token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodPost, "/api/progression/events", token, ApplyEventRequest{
		GoalTypes: []string{"LEVEL"},
		Context:   progression.Event{Level: 25},
	})
	require.Equal(t, http.StatusOK, status, body)
	result := body["result"].(map[string]interface{})
	assert.Empty(t, result["newly_completed"])

	var entry models.UserAchievement
	require.NoError(t, env.db.Where("user_id = ? AND achievement_id = ?", userID, level.ID).First(&entry).Error)
	assert.False(t, entry.Completed)
	assert.InDelta(t, 4.0, entry.Progress, 1e-9)
}

func TestLeaderboardCountFailure(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, env.db.Create(&models.User{Username: "lou", Password: "x", Level: 1}).Error)

	require.NoError(t, env.db.Callback().Query().Before("gorm:query").Register("test:fail_user_count", func(tx *gorm.DB) {
		if _, counting := tx.Statement.Dest.(*int64); counting && tx.Statement.Table == "users" {
			_ = tx.AddError(errors.New("count failed"))
		}
	}))

	status, body := env.do(t, http.MethodGet, "/api/leaderboard", "", nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
}

func TestAuthRoutesAreThrottled(t *testing.T) {
	env := newEnv(t, func(h *Handler) {
		h.AuthLimiter = middleware.NewAuthRateLimiter(2, time.Hour)
	})
	_, _ = env.register(t, "max")

	status, _ := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "max", Password: "correct horse battery"})
	assert.Equal(t, http.StatusOK, status)
	status, body := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "max", Password: "correct horse battery"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, false, body["success"])

	status, _ = env.do(t, http.MethodGet, "/api/leaderboard", "", nil)
	assert.Equal(t, http.StatusOK, status)
}
