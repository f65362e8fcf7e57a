package arcontent

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vertex-ar/backend/internal/models"
	"github.com/vertex-ar/backend/pkg/database"
)

// newTestPool connects to TEST_DATABASE_URL and migrates it. Skips when unset.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres integration test")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, database.PoolConfig{MaxConns: 4}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.Migrate(ctx, pool, zap.NewNop()))
	return pool
}

func seedItem(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `INSERT INTO ar_content (id, name) VALUES ($1, $2)`, id, "it-"+id.String()[:8])
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DELETE FROM ar_content WHERE id = $1`, id) })
	return id
}

func seedVideo(t *testing.T, pool *pgxpool.Pool, itemID uuid.UUID, order int, rotation models.VideoRotationType) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(), `INSERT INTO videos (id, ar_content_id, title, file_url, s3_key, rotation_type, rotation_order)
		VALUES ($1, $2, 'clip', 'https://cdn.example.com/clip.mp4', 'videos/x.mp4', $3, $4)`, id, itemID, string(rotation), order)
	require.NoError(t, err)
	return id
}

func TestRepository_Postgres(t *testing.T) {
	pool := newTestPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	item := seedItem(t, pool)
	second := seedVideo(t, pool, item, 1, models.VideoRotationSequential)
	first := seedVideo(t, pool, item, 0, models.VideoRotationSequential)

	videos, err := repo.ListVideos(ctx, item)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, first, videos[0].ID)
	assert.Equal(t, second, videos[1].ID)
	assert.Equal(t, "videos/x.mp4", videos[0].S3Key)

	require.NoError(t, repo.PersistRotationAdvance(ctx, item, 1))
	got, err := repo.GetARContent(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RotationState)

	require.NoError(t, repo.SetActiveVideo(ctx, item, &second))
	got, err = repo.GetARContent(ctx, item)
	require.NoError(t, err)
	require.NotNil(t, got.ActiveVideoID)
	assert.Equal(t, second, *got.ActiveVideoID)
	assert.Zero(t, got.RotationState)

	require.NoError(t, repo.PersistRotationAdvance(ctx, item, 1))
	cyclic := models.VideoRotationCyclic
	v, err := repo.UpdateVideoRotation(ctx, first, VideoRotationUpdate{RotationType: &cyclic})
	require.NoError(t, err)
	assert.Equal(t, models.VideoRotationCyclic, v.RotationType)
	got, err = repo.GetARContent(ctx, item)
	require.NoError(t, err)
	assert.Zero(t, got.RotationState)

	active, err := repo.ToggleVideoActive(ctx, first)
	require.NoError(t, err)
	assert.False(t, active)

	deleted, err := repo.DeleteVideo(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, item, deleted.ARContentID)
	got, err = repo.GetARContent(ctx, item)
	require.NoError(t, err)
	assert.Nil(t, got.ActiveVideoID)

	_, err = repo.GetVideo(ctx, second)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = repo.GetARContent(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRuleRepository_Postgres(t *testing.T) {
	pool := newTestPool(t)
	rules := NewRuleRepository(pool, zap.NewNop())
	ctx := context.Background()
	item := seedItem(t, pool)
	a := seedVideo(t, pool, item, 0, models.VideoRotationNone)
	b := seedVideo(t, pool, item, 1, models.VideoRotationNone)

	none, err := rules.GetActiveRotationRule(ctx, item)
	require.NoError(t, err)
	assert.Nil(t, none)

	seed := "spring"
	require.NoError(t, rules.ReplaceActiveRule(ctx, &models.RotationRule{
		ARContentID: item, RotationType: models.RotationRuleRandomDaily,
		VideoSequence: []uuid.UUID{a, b}, RandomSeed: &seed,
	}))
	require.NoError(t, rules.ReplaceActiveRule(ctx, &models.RotationRule{
		ARContentID: item, RotationType: models.RotationRuleDateSpecific,
		DateRules: []models.DateRule{{Date: "12-25", VideoID: b, Recurring: true}},
	}))

	rule, err := rules.GetActiveRotationRule(ctx, item)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, models.RotationRuleDateSpecific, rule.RotationType)
	assert.Equal(t, []models.DateRule{{Date: "12-25", VideoID: b, Recurring: true}}, rule.DateRules)
	assert.Empty(t, rule.VideoSequence)

	var activeCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM rotation_rules WHERE ar_content_id = $1 AND is_active`, item).Scan(&activeCount))
	assert.Equal(t, 1, activeCount)

	now := time.Now().UTC().Truncate(time.Second)
	start, end := now.Add(-time.Hour), now.Add(time.Hour)
	later := now.Add(-30 * time.Minute)
	require.NoError(t, rules.CreateSchedule(ctx, &models.VideoSchedule{VideoID: b, StartTime: &later, EndTime: &end}))
	require.NoError(t, rules.CreateSchedule(ctx, &models.VideoSchedule{VideoID: a, StartTime: &start, EndTime: &end}))
	require.NoError(t, rules.CreateSchedule(ctx, &models.VideoSchedule{VideoID: a, StartTime: &start, EndTime: &end, Status: models.ScheduleStatusInactive}))

	open, err := rules.GetOpenSchedules(ctx, item, now)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, a, open[0].Video.ID, "earliest start first")
	assert.Equal(t, b, open[1].Video.ID)

	list, err := rules.GetSchedulesForVideo(ctx, a)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	n, err := rules.DeactivateRules(ctx, item)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
