// Package dashboard exposes the read-only reporting API consumed by the
// moderation dashboard. Everything here is a pure projection over the
// persisted entities; no handler mutates state.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/barsik-modbot-go/internal/middleware"
	"github.com/barsik-modbot-go/internal/models"
)

// Server serves the dashboard API. The redis client is optional; when nil,
// responses are computed on every request.
type Server struct {
	db       *gorm.DB
	redis    *redis.Client
	cacheTTL time.Duration
	metrics  *middleware.Metrics
	logger   *logrus.Logger
	now      func() time.Time
}

// NewServer creates a dashboard API server.
func NewServer(db *gorm.DB, redisClient *redis.Client, cacheTTL time.Duration, metrics *middleware.Metrics, logger *logrus.Logger) *Server {
	return &Server{
		db:       db,
		redis:    redisClient,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.HandleFunc("/api/moderation", s.handle).Methods(http.MethodGet, http.MethodOptions)
	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	action := r.URL.Query().Get("action")
	if action == "" {
		action = "stats"
	}
	defer func() {
		s.metrics.RecordDashboardRequest(action, time.Since(start))
	}()

	ctx := r.Context()
	if cached, ok := s.cachedResponse(ctx, action); ok {
		writeRawJSON(w, http.StatusOK, cached)
		return
	}

	var (
		result interface{}
		err    error
	)
	switch action {
	case "stats":
		result, err = s.stats(ctx)
	case "users":
		result, err = s.users(ctx)
	case "activity":
		result, err = s.activity(ctx)
	case "top_violators":
		result, err = s.topViolators(ctx)
	case "settings":
		result, err = s.settings(ctx)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"error": "Unknown action"})
		return
	}

	if err != nil {
		s.logger.WithError(err).WithField("action", action).Error("Dashboard query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}

	body, err := json.Marshal(result)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encoding failed"})
		return
	}
	s.cacheResponse(ctx, action, body)
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) cachedResponse(ctx context.Context, action string) ([]byte, bool) {
	if s.redis == nil {
		return nil, false
	}
	body, err := s.redis.Get(ctx, cacheKey(action)).Bytes()
	if err != nil {
		return nil, false
	}
	return body, true
}

func (s *Server) cacheResponse(ctx context.Context, action string, body []byte) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(action), body, s.cacheTTL).Err(); err != nil {
		s.logger.WithError(err).Debug("Failed to cache dashboard response")
	}
}

func cacheKey(action string) string {
	return "dashboard:" + action
}

type statsResponse struct {
	TotalUsers int64 `json:"total_users"`
	BansToday  int64 `json:"bans_today"`
	MutesToday int64 `json:"mutes_today"`
	WarnsToday int64 `json:"warns_today"`
}

func (s *Server) stats(ctx context.Context) (interface{}, error) {
	var res statsResponse
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.User{}).Count(&res.TotalUsers).Error; err != nil {
		return nil, err
	}

	dayAgo := s.now().Add(-24 * time.Hour)
	counts := []struct {
		action models.ActionType
		dest   *int64
	}{
		{models.ActionBan, &res.BansToday},
		{models.ActionMute, &res.MutesToday},
		{models.ActionWarn, &res.WarnsToday},
	}
	for _, c := range counts {
		if err := db.Model(&models.ModerationAction{}).
			Where("action_type = ? AND created_at > ?", c.action, dayAgo).
			Count(c.dest).Error; err != nil {
			return nil, err
		}
	}
	return res, nil
}

type userEntry struct {
	ID         int64             `json:"id"`
	Username   string            `json:"username"`
	Status     models.UserStatus `json:"status"`
	Violations int               `json:"violations"`
	Warnings   int               `json:"warnings"`
}

func (s *Server) users(ctx context.Context) (interface{}, error) {
	var rows []models.User
	if err := s.db.WithContext(ctx).
		Order("violations_count DESC, updated_at DESC").
		Limit(50).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	users := make([]userEntry, 0, len(rows))
	for i := range rows {
		users = append(users, toUserEntry(&rows[i]))
	}
	return map[string]interface{}{"users": users}, nil
}

func (s *Server) topViolators(ctx context.Context) (interface{}, error) {
	var rows []models.User
	if err := s.db.WithContext(ctx).
		Where("violations_count > 0").
		Order("violations_count DESC").
		Limit(10).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	violators := make([]userEntry, 0, len(rows))
	for i := range rows {
		violators = append(violators, toUserEntry(&rows[i]))
	}
	return map[string]interface{}{"violators": violators}, nil
}

func toUserEntry(u *models.User) userEntry {
	name := u.DisplayName()
	if name == "" {
		name = "user_" + strconv.FormatInt(u.TelegramID, 10)
	}
	return userEntry{
		ID:         u.TelegramID,
		Username:   name,
		Status:     u.Status,
		Violations: u.ViolationsCount,
		Warnings:   u.WarningsCount,
	}
}

type dayActivity struct {
	Day   string `json:"day"`
	Bans  int64  `json:"bans"`
	Mutes int64  `json:"mutes"`
	Warns int64  `json:"warns"`
}

// activity bucketizes the last week of actions per day. Bucketing happens in
// Go so the query stays portable between postgres and sqlite.
func (s *Server) activity(ctx context.Context) (interface{}, error) {
	weekAgo := s.now().Add(-7 * 24 * time.Hour)
	var rows []models.ModerationAction
	if err := s.db.WithContext(ctx).
		Select("created_at", "action_type").
		Where("created_at > ?", weekAgo).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	byDay := make(map[string]*dayActivity)
	for i := range rows {
		day := rows[i].CreatedAt.Format("2006-01-02")
		bucket, ok := byDay[day]
		if !ok {
			bucket = &dayActivity{Day: day}
			byDay[day] = bucket
		}
		switch rows[i].ActionType {
		case models.ActionBan:
			bucket.Bans++
		case models.ActionMute:
			bucket.Mutes++
		case models.ActionWarn:
			bucket.Warns++
		}
	}

	activity := make([]dayActivity, 0, len(byDay))
	for _, bucket := range byDay {
		activity = append(activity, *bucket)
	}
	sort.Slice(activity, func(i, j int) bool {
		return activity[i].Day > activity[j].Day
	})
	return map[string]interface{}{"activity": activity}, nil
}

type settingEntry struct {
	Enabled bool            `json:"enabled"`
	Config  json.RawMessage `json:"config"`
}

func (s *Server) settings(ctx context.Context) (interface{}, error) {
	var rows []models.AutoModSetting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	settings := make(map[string]settingEntry, len(rows))
	for i := range rows {
		cfg := json.RawMessage(rows[i].Config)
		if !json.Valid(cfg) {
			cfg = json.RawMessage("null")
		}
		settings[rows[i].SettingName] = settingEntry{
			Enabled: rows[i].Enabled,
			Config:  cfg,
		}
	}
	return map[string]interface{}{"settings": settings}, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	writeRawJSON(w, status, body)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
