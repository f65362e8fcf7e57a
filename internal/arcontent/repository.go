package arcontent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vertex-ar/backend/internal/models"
	"github.com/vertex-ar/backend/pkg/database"
)

// ErrVideoNotOwned is returned when a video is assigned to an item it does not belong to.
var ErrVideoNotOwned = errors.New("video does not belong to ar content")

const videoColumns = `id, ar_content_id, title, file_url, COALESCE(s3_key,''), is_active, subscription_end,
	rotation_type, rotation_order, rotation_weight, created_at`

// Repository handles AR content and video persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an AR content repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanVideo(row pgx.Row, v *models.Video) error {
	var rotationType string
	if err := row.Scan(&v.ID, &v.ARContentID, &v.Title, &v.FileURL, &v.S3Key, &v.IsActive, &v.SubscriptionEnd,
		&rotationType, &v.RotationOrder, &v.RotationWeight, &v.CreatedAt); err != nil {
		return err
	}
	v.RotationType = models.VideoRotationType(rotationType)
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

// GetARContent returns an AR content item by ID.
func (r *Repository) GetARContent(ctx context.Context, id uuid.UUID) (*models.ARContent, error) {
	const q = `SELECT id, name, active_video_id, rotation_state, created_at, updated_at FROM ar_content WHERE id = $1`
	var a models.ARContent
	err := r.pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.Name, &a.ActiveVideoID, &a.RotationState, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// GetVideo returns a video by ID.
func (r *Repository) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	q := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`
	var v models.Video
	if err := scanVideo(r.pool.QueryRow(ctx, q, id), &v); err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

// ListVideos returns all videos of an item ordered by rotation_order, then id.
func (r *Repository) ListVideos(ctx context.Context, arContentID uuid.UUID) ([]models.Video, error) {
	q := `SELECT ` + videoColumns + ` FROM videos WHERE ar_content_id = $1 ORDER BY rotation_order, id`
	return r.queryVideos(ctx, q, arContentID)
}

// ListSubscribedVideos returns active videos that have a subscription end (for expiry sweeps).
func (r *Repository) ListSubscribedVideos(ctx context.Context) ([]models.Video, error) {
	q := `SELECT ` + videoColumns + ` FROM videos WHERE is_active = TRUE AND subscription_end IS NOT NULL ORDER BY subscription_end`
	return r.queryVideos(ctx, q)
}

func (r *Repository) queryVideos(ctx context.Context, q string, args ...any) ([]models.Video, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Video
	for rows.Next() {
		var v models.Video
		if err := scanVideo(rows, &v); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// PersistRotationAdvance stores the legacy rotation cursor.
func (r *Repository) PersistRotationAdvance(ctx context.Context, arContentID uuid.UUID, newState int) error {
	const q = `UPDATE ar_content SET rotation_state = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, newState, arContentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetActiveVideo sets (or clears, when videoID is nil) the stored default and resets rotation_state.
func (r *Repository) SetActiveVideo(ctx context.Context, arContentID uuid.UUID, videoID *uuid.UUID) error {
	if videoID != nil {
		v, err := r.GetVideo(ctx, *videoID)
		if err != nil {
			return err
		}
		if v.ARContentID != arContentID {
			return ErrVideoNotOwned
		}
	}
	const q = `UPDATE ar_content SET active_video_id = $1, rotation_state = 0, updated_at = NOW() WHERE id = $2`
	tag, err := r.pool.Exec(ctx, q, videoID, arContentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// VideoRotationUpdate holds optional rotation fields for a video.
type VideoRotationUpdate struct {
	RotationType   *models.VideoRotationType
	RotationOrder  *int
	RotationWeight *int
}

// UpdateVideoRotation applies the update and, when the rotation type changes, resets the
// owning item's rotation_state. Returns the updated video.
func (r *Repository) UpdateVideoRotation(ctx context.Context, videoID uuid.UUID, upd VideoRotationUpdate) (*models.Video, error) {
	var out models.Video
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var before models.Video
		if err := scanVideo(tx.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1 FOR UPDATE`, videoID), &before); err != nil {
			return notFound(err)
		}
		var rotationType *string
		if upd.RotationType != nil {
			s := string(*upd.RotationType)
			rotationType = &s
		}
		q := `UPDATE videos SET rotation_type = COALESCE($1, rotation_type), rotation_order = COALESCE($2, rotation_order),
			rotation_weight = COALESCE($3, rotation_weight) WHERE id = $4 RETURNING ` + videoColumns
		if err := scanVideo(tx.QueryRow(ctx, q, rotationType, upd.RotationOrder, upd.RotationWeight, videoID), &out); err != nil {
			return fmt.Errorf("update video rotation: %w", err)
		}
		if out.RotationType != before.RotationType {
			if _, err := tx.Exec(ctx, `UPDATE ar_content SET rotation_state = 0, updated_at = NOW() WHERE id = $1`, out.ARContentID); err != nil {
				return fmt.Errorf("reset rotation state: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleVideoActive flips is_active for a video.
func (r *Repository) ToggleVideoActive(ctx context.Context, videoID uuid.UUID) (bool, error) {
	const q = `UPDATE videos SET is_active = NOT is_active WHERE id = $1 RETURNING is_active`
	var active bool
	if err := r.pool.QueryRow(ctx, q, videoID).Scan(&active); err != nil {
		return false, notFound(err)
	}
	return active, nil
}

// DeleteVideo removes a video and clears it as the owning item's stored default.
// Returns the deleted row so callers can clean up storage.
func (r *Repository) DeleteVideo(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	var v models.Video
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := scanVideo(tx.QueryRow(ctx, `DELETE FROM videos WHERE id = $1 RETURNING `+videoColumns, videoID), &v); err != nil {
			return notFound(err)
		}
		const q = `UPDATE ar_content SET active_video_id = NULL, rotation_state = 0, updated_at = NOW()
			WHERE id = $1 AND active_video_id = $2`
		_, err := tx.Exec(ctx, q, v.ARContentID, videoID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}
