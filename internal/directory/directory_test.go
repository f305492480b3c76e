package directory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barsik-modbot-go/internal/models"
	"github.com/barsik-modbot-go/internal/testutil"
)

func TestGetOrCreate(t *testing.T) {
	db := testutil.OpenDB(t)
	dir := New(db)
	ctx := context.Background()

	t.Run("creates a fresh active user", func(t *testing.T) {
		user, err := dir.GetOrCreate(ctx, 100, Hints{Username: "alice", FirstName: "Alice"})
		require.NoError(t, err)
		assert.Equal(t, int64(100), user.TelegramID)
		assert.Equal(t, models.StatusActive, user.Status)
		assert.Zero(t, user.WarningsCount)
		assert.Zero(t, user.ViolationsCount)
	})

	t.Run("second call returns the same row unchanged", func(t *testing.T) {
		first, err := dir.GetOrCreate(ctx, 200, Hints{Username: "bob"})
		require.NoError(t, err)

		second, err := dir.GetOrCreate(ctx, 200, Hints{Username: "someone_else"})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "bob", second.Username, "hints must not overwrite an existing row")

		var count int64
		require.NoError(t, db.Model(&models.User{}).Where("telegram_id = ?", 200).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})
}

func TestApplyBan(t *testing.T) {
	db := testutil.OpenDB(t)
	dir := New(db)
	ctx := context.Background()

	_, err := dir.GetOrCreate(ctx, 300, Hints{})
	require.NoError(t, err)

	require.NoError(t, dir.ApplyBan(ctx, 300))

	var user models.User
	require.NoError(t, db.Where("telegram_id = ?", 300).First(&user).Error)
	assert.Equal(t, models.StatusBanned, user.Status)
	require.NotNil(t, user.BannedAt)

	// Re-banning is a state-wise no-op and must not fail.
	require.NoError(t, dir.ApplyBan(ctx, 300))
}

func TestApplyMute_Overwrite(t *testing.T) {
	db := testutil.OpenDB(t)
	dir := New(db)
	ctx := context.Background()

	_, err := dir.GetOrCreate(ctx, 400, Hints{})
	require.NoError(t, err)

	first := time.Now().Add(10 * time.Minute)
	require.NoError(t, dir.ApplyMute(ctx, 400, first))

	second := time.Now().Add(30 * time.Minute)
	require.NoError(t, dir.ApplyMute(ctx, 400, second))

	var user models.User
	require.NoError(t, db.Where("telegram_id = ?", 400).First(&user).Error)
	assert.Equal(t, models.StatusMuted, user.Status)
	require.NotNil(t, user.MutedUntil)
	assert.WithinDuration(t, second, *user.MutedUntil, time.Second)
}

func TestApplyWarn_Monotonic(t *testing.T) {
	db := testutil.OpenDB(t)
	dir := New(db)
	ctx := context.Background()

	_, err := dir.GetOrCreate(ctx, 500, Hints{})
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		warnings, err := dir.ApplyWarn(ctx, 500)
		require.NoError(t, err)
		assert.Equal(t, i, warnings)
	}

	var user models.User
	require.NoError(t, db.Where("telegram_id = ?", 500).First(&user).Error)
	assert.Equal(t, 5, user.WarningsCount)
	assert.Equal(t, 5, user.ViolationsCount)
	assert.Equal(t, models.StatusWarned, user.Status)
}

func TestApplyWarn_UnknownUser(t *testing.T) {
	db := testutil.OpenDB(t)
	dir := New(db)

	_, err := dir.ApplyWarn(context.Background(), 999)
	assert.Error(t, err)
}

func TestApplyWarn_Concurrent(t *testing.T) {
	db := testutil.OpenDB(t)
	dir := New(db)
	ctx := context.Background()

	_, err := dir.GetOrCreate(ctx, 600, Hints{})
	require.NoError(t, err)

	const warns = 50
	var wg sync.WaitGroup
	errs := make(chan error, warns)
	for i := 0; i < warns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := dir.ApplyWarn(ctx, 600); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent warn failed: %v", err)
	}

	var user models.User
	require.NoError(t, db.Where("telegram_id = ?", 600).First(&user).Error)
	assert.Equal(t, warns, user.WarningsCount, "no warn may be lost")
	assert.Equal(t, warns, user.ViolationsCount)
}
