package arcontent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vertex-ar/backend/internal/models"
	"github.com/vertex-ar/backend/pkg/database"
)

const ruleColumns = `id, ar_content_id, name, rotation_type, default_video_id, video_sequence, date_rules,
	random_seed, is_active, created_at`

// RuleRepository handles rotation rules and video schedules.
type RuleRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRuleRepository creates a rule repository.
func NewRuleRepository(pool *pgxpool.Pool, logger *zap.Logger) *RuleRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleRepository{pool: pool, logger: logger}
}

func (r *RuleRepository) scanRule(row pgx.Row) (*models.RotationRule, error) {
	var (
		rule         models.RotationRule
		rotationType string
		sequence     []byte
		dateRules    []byte
	)
	if err := row.Scan(&rule.ID, &rule.ARContentID, &rule.Name, &rotationType, &rule.DefaultVideoID, &sequence, &dateRules,
		&rule.RandomSeed, &rule.IsActive, &rule.CreatedAt); err != nil {
		return nil, err
	}
	rule.RotationType = models.RotationRuleType(rotationType)
	var skipped int
	var err error
	if rule.VideoSequence, skipped, err = decodeVideoSequence(sequence); err != nil {
		return nil, err
	}
	if skipped > 0 {
		r.logger.Warn("skipped undecodable video_sequence entries",
			zap.String("rule_id", rule.ID.String()), zap.Int("skipped", skipped))
	}
	if rule.DateRules, skipped, err = decodeDateRules(dateRules); err != nil {
		return nil, err
	}
	if skipped > 0 {
		r.logger.Warn("skipped undecodable date_rules entries",
			zap.String("rule_id", rule.ID.String()), zap.Int("skipped", skipped))
	}
	return &rule, nil
}

// decodeVideoSequence decodes the JSON array entry by entry, dropping ids that do not parse.
func decodeVideoSequence(raw []byte) ([]uuid.UUID, int, error) {
	entries, err := splitJSONArray(raw, "video_sequence")
	if err != nil || entries == nil {
		return nil, 0, err
	}
	out := make([]uuid.UUID, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		var id uuid.UUID
		if err := json.Unmarshal(e, &id); err != nil {
			skipped++
			continue
		}
		out = append(out, id)
	}
	return out, skipped, nil
}

// decodeDateRules decodes the JSON array entry by entry, dropping entries that do not decode.
func decodeDateRules(raw []byte) ([]models.DateRule, int, error) {
	entries, err := splitJSONArray(raw, "date_rules")
	if err != nil || entries == nil {
		return nil, 0, err
	}
	out := make([]models.DateRule, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		var dr models.DateRule
		if err := json.Unmarshal(e, &dr); err != nil {
			skipped++
			continue
		}
		out = append(out, dr)
	}
	return out, skipped, nil
}

func splitJSONArray(raw []byte, column string) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", column, err)
	}
	return entries, nil
}

// GetActiveRotationRule returns the newest active rule for the item, or nil when none is active.
func (r *RuleRepository) GetActiveRotationRule(ctx context.Context, arContentID uuid.UUID) (*models.RotationRule, error) {
	q := `SELECT ` + ruleColumns + ` FROM rotation_rules WHERE ar_content_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC LIMIT 1`
	rule, err := r.scanRule(r.pool.QueryRow(ctx, q, arContentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ReplaceActiveRule deactivates the item's current rules and inserts rule as the active one.
func (r *RuleRepository) ReplaceActiveRule(ctx context.Context, rule *models.RotationRule) error {
	sequence, err := json.Marshal(nonNilSequence(rule.VideoSequence))
	if err != nil {
		return fmt.Errorf("encode video_sequence: %w", err)
	}
	dateRules, err := json.Marshal(nonNilDateRules(rule.DateRules))
	if err != nil {
		return fmt.Errorf("encode date_rules: %w", err)
	}
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.IsActive = true
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE rotation_rules SET is_active = FALSE WHERE ar_content_id = $1 AND is_active = TRUE`, rule.ARContentID); err != nil {
			return fmt.Errorf("deactivate rules: %w", err)
		}
		const q = `INSERT INTO rotation_rules (id, ar_content_id, name, rotation_type, default_video_id, video_sequence,
			date_rules, random_seed, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW()) RETURNING created_at`
		return tx.QueryRow(ctx, q, rule.ID, rule.ARContentID, rule.Name, string(rule.RotationType), rule.DefaultVideoID,
			string(sequence), string(dateRules), rule.RandomSeed).Scan(&rule.CreatedAt)
	})
}

// DeactivateRules turns off every active rule of the item. Returns the number of rules changed.
func (r *RuleRepository) DeactivateRules(ctx context.Context, arContentID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE rotation_rules SET is_active = FALSE WHERE ar_content_id = $1 AND is_active = TRUE`, arContentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetOpenSchedules returns active schedules of the item's videos whose bounds contain now,
// ordered by start_time, then video id.
func (r *RuleRepository) GetOpenSchedules(ctx context.Context, arContentID uuid.UUID, now time.Time) ([]models.ScheduledVideo, error) {
	q := `SELECT s.id, s.video_id, s.start_time, s.end_time, s.status, COALESCE(s.description,''), s.created_at,
		v.id, v.ar_content_id, v.title, v.file_url, COALESCE(v.s3_key,''), v.is_active, v.subscription_end,
		v.rotation_type, v.rotation_order, v.rotation_weight, v.created_at
		FROM video_schedules s JOIN videos v ON v.id = s.video_id
		WHERE v.ar_content_id = $1 AND s.status = $2 AND s.start_time <= $3 AND s.end_time >= $3
		ORDER BY s.start_time, v.id`
	rows, err := r.pool.Query(ctx, q, arContentID, models.ScheduleStatusActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ScheduledVideo
	for rows.Next() {
		var (
			sv           models.ScheduledVideo
			rotationType string
		)
		s, v := &sv.Schedule, &sv.Video
		if err := rows.Scan(&s.ID, &s.VideoID, &s.StartTime, &s.EndTime, &s.Status, &s.Description, &s.CreatedAt,
			&v.ID, &v.ARContentID, &v.Title, &v.FileURL, &v.S3Key, &v.IsActive, &v.SubscriptionEnd,
			&rotationType, &v.RotationOrder, &v.RotationWeight, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.RotationType = models.VideoRotationType(rotationType)
		list = append(list, sv)
	}
	return list, rows.Err()
}

// GetSchedulesForVideo returns all schedules of a video ordered by start_time.
func (r *RuleRepository) GetSchedulesForVideo(ctx context.Context, videoID uuid.UUID) ([]models.VideoSchedule, error) {
	const q = `SELECT id, video_id, start_time, end_time, status, COALESCE(description,''), created_at
		FROM video_schedules WHERE video_id = $1 ORDER BY start_time NULLS LAST, id`
	rows, err := r.pool.Query(ctx, q, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.VideoSchedule
	for rows.Next() {
		var s models.VideoSchedule
		if err := rows.Scan(&s.ID, &s.VideoID, &s.StartTime, &s.EndTime, &s.Status, &s.Description, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// CreateSchedule inserts a schedule window for a video.
func (r *RuleRepository) CreateSchedule(ctx context.Context, s *models.VideoSchedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = models.ScheduleStatusActive
	}
	const q = `INSERT INTO video_schedules (id, video_id, start_time, end_time, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING created_at`
	return r.pool.QueryRow(ctx, q, s.ID, s.VideoID, s.StartTime, s.EndTime, s.Status, s.Description).Scan(&s.CreatedAt)
}

func nonNilSequence(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func nonNilDateRules(rules []models.DateRule) []models.DateRule {
	if rules == nil {
		return []models.DateRule{}
	}
	return rules
}
