package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/barsik-modbot-go/internal/middleware"
	"github.com/barsik-modbot-go/internal/models"
	"github.com/barsik-modbot-go/internal/testutil"
)

func newTestServer(t *testing.T, db *gorm.DB) *httptest.Server {
	t.Helper()
	api := NewServer(db, nil, time.Minute, middleware.NewMetrics(), testutil.QuietLogger())
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, action string, dest interface{}) {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/moderation?action=" + action)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	users := []models.User{
		{TelegramID: 1, Username: "alice", Status: models.StatusActive},
		{TelegramID: 2, Username: "bob", Status: models.StatusBanned, ViolationsCount: 5, WarningsCount: 2},
		{TelegramID: 3, FirstName: "Carol", Status: models.StatusMuted, ViolationsCount: 1, WarningsCount: 1},
		{TelegramID: 4, Status: models.StatusActive},
	}
	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}

	actions := []models.ModerationAction{
		{UserID: 2, ModeratorID: 1, ActionType: models.ActionBan, Reason: "spam"},
		{UserID: 3, ModeratorID: 1, ActionType: models.ActionMute},
		{UserID: 3, ModeratorID: 1, ActionType: models.ActionWarn},
	}
	for i := range actions {
		require.NoError(t, db.Create(&actions[i]).Error)
	}

	require.NoError(t, db.Create(&models.AutoModSetting{
		SettingName: "warn_limit",
		Enabled:     true,
		Config:      `{"max_warnings": 3}`,
	}).Error)
}

func TestStatsAction(t *testing.T) {
	db := testutil.OpenDB(t)
	seed(t, db)
	srv := newTestServer(t, db)

	var res struct {
		TotalUsers int64 `json:"total_users"`
		BansToday  int64 `json:"bans_today"`
		MutesToday int64 `json:"mutes_today"`
		WarnsToday int64 `json:"warns_today"`
	}
	getJSON(t, srv, "stats", &res)

	assert.EqualValues(t, 4, res.TotalUsers)
	assert.EqualValues(t, 1, res.BansToday)
	assert.EqualValues(t, 1, res.MutesToday)
	assert.EqualValues(t, 1, res.WarnsToday)
}

func TestUsersAction(t *testing.T) {
	db := testutil.OpenDB(t)
	seed(t, db)
	srv := newTestServer(t, db)

	var res struct {
		Users []struct {
			ID         int64  `json:"id"`
			Username   string `json:"username"`
			Status     string `json:"status"`
			Violations int    `json:"violations"`
		} `json:"users"`
	}
	getJSON(t, srv, "users", &res)

	require.Len(t, res.Users, 4)
	assert.Equal(t, int64(2), res.Users[0].ID, "sorted by violations first")
	assert.Equal(t, "bob", res.Users[0].Username)
	assert.Equal(t, 5, res.Users[0].Violations)

	// Display-name fallbacks: first name, then a synthetic handle.
	names := make(map[int64]string)
	for _, u := range res.Users {
		names[u.ID] = u.Username
	}
	assert.Equal(t, "Carol", names[3])
	assert.Equal(t, "user_4", names[4])
}

func TestTopViolatorsAction(t *testing.T) {
	db := testutil.OpenDB(t)
	seed(t, db)
	srv := newTestServer(t, db)

	var res struct {
		Violators []struct {
			ID int64 `json:"id"`
		} `json:"violators"`
	}
	getJSON(t, srv, "top_violators", &res)

	require.Len(t, res.Violators, 2, "only users with violations qualify")
	assert.Equal(t, int64(2), res.Violators[0].ID)
	assert.Equal(t, int64(3), res.Violators[1].ID)
}

func TestActivityAction(t *testing.T) {
	db := testutil.OpenDB(t)
	seed(t, db)
	srv := newTestServer(t, db)

	var res struct {
		Activity []struct {
			Day   string `json:"day"`
			Bans  int64  `json:"bans"`
			Mutes int64  `json:"mutes"`
			Warns int64  `json:"warns"`
		} `json:"activity"`
	}
	getJSON(t, srv, "activity", &res)

	require.Len(t, res.Activity, 1, "all seeded actions land on today")
	assert.Equal(t, time.Now().Format("2006-01-02"), res.Activity[0].Day)
	assert.EqualValues(t, 1, res.Activity[0].Bans)
	assert.EqualValues(t, 1, res.Activity[0].Mutes)
	assert.EqualValues(t, 1, res.Activity[0].Warns)
}

func TestSettingsAction(t *testing.T) {
	db := testutil.OpenDB(t)
	seed(t, db)
	srv := newTestServer(t, db)

	var res struct {
		Settings map[string]struct {
			Enabled bool            `json:"enabled"`
			Config  json.RawMessage `json:"config"`
		} `json:"settings"`
	}
	getJSON(t, srv, "settings", &res)

	entry, ok := res.Settings["warn_limit"]
	require.True(t, ok)
	assert.True(t, entry.Enabled)
	assert.JSONEq(t, `{"max_warnings": 3}`, string(entry.Config))
}

func TestUnknownAction(t *testing.T) {
	db := testutil.OpenDB(t)
	srv := newTestServer(t, db)

	var res map[string]string
	getJSON(t, srv, "bogus", &res)
	assert.Equal(t, "Unknown action", res["error"])
}

func TestDefaultActionIsStats(t *testing.T) {
	db := testutil.OpenDB(t)
	srv := newTestServer(t, db)

	resp, err := http.Get(srv.URL + "/api/moderation")
	require.NoError(t, err)
	defer resp.Body.Close()

	var res map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Contains(t, res, "total_users")
}
