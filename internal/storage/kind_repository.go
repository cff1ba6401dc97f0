package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/campus-reserve/backend/internal/storage/models"
)

// KindRepository provides data access for resource kinds.
type KindRepository struct {
	BaseRepository
}

// NewKindRepository creates a new resource kind repository.
func NewKindRepository(db *DB) *KindRepository {
	return &KindRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const kindColumns = `id, display_name, capacity_per_day, is_slotted, requires_note, is_active, created_at, updated_at`

// Create inserts a new resource kind.
func (r *KindRepository) Create(ctx context.Context, kind *models.ResourceKind) error {
	kind.CreatedAt = r.Now()
	kind.UpdatedAt = kind.CreatedAt

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO resource_kinds (id, display_name, capacity_per_day, is_slotted, requires_note, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		kind.ID, kind.DisplayName, kind.CapacityPerDay, kind.IsSlotted,
		kind.RequiresNote, kind.IsActive, kind.CreatedAt, kind.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting resource kind: %w", err)
	}
	return nil
}

// GetByID retrieves a resource kind. Returns ErrNotFound if it does not
// exist.
func (r *KindRepository) GetByID(ctx context.Context, id string) (*models.ResourceKind, error) {
	kind := &models.ResourceKind{}

	err := r.DB().QueryRowContext(ctx,
		`SELECT `+kindColumns+` FROM resource_kinds WHERE id = ?`, id,
	).Scan(
		&kind.ID, &kind.DisplayName, &kind.CapacityPerDay, &kind.IsSlotted,
		&kind.RequiresNote, &kind.IsActive, &kind.CreatedAt, &kind.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying resource kind: %w", err)
	}
	return kind, nil
}

// ListActive retrieves all kinds currently accepting reservations.
func (r *KindRepository) ListActive(ctx context.Context) ([]models.ResourceKind, error) {
	return r.list(ctx, `SELECT `+kindColumns+` FROM resource_kinds WHERE is_active = 1 ORDER BY id`)
}

// ListAll retrieves every kind, active or not.
func (r *KindRepository) ListAll(ctx context.Context) ([]models.ResourceKind, error) {
	return r.list(ctx, `SELECT `+kindColumns+` FROM resource_kinds ORDER BY id`)
}

func (r *KindRepository) list(ctx context.Context, query string) ([]models.ResourceKind, error) {
	rows, err := r.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying resource kinds: %w", err)
	}
	defer rows.Close()

	var kinds []models.ResourceKind
	for rows.Next() {
		var kind models.ResourceKind
		if err := rows.Scan(
			&kind.ID, &kind.DisplayName, &kind.CapacityPerDay, &kind.IsSlotted,
			&kind.RequiresNote, &kind.IsActive, &kind.CreatedAt, &kind.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning resource kind: %w", err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, rows.Err()
}

// Update modifies a kind's display name, capacity, and note policy.
// Slotting is fixed at creation; changing it would orphan slot rows.
func (r *KindRepository) Update(ctx context.Context, kind *models.ResourceKind) error {
	kind.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE resource_kinds
		SET display_name = ?, capacity_per_day = ?, requires_note = ?, updated_at = ?
		WHERE id = ?
	`, kind.DisplayName, kind.CapacityPerDay, kind.RequiresNote, kind.UpdatedAt, kind.ID)
	if err != nil {
		return fmt.Errorf("updating resource kind: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive flips a kind's active flag. Deactivating blocks new admissions
// but leaves existing reservations untouched.
func (r *KindRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE resource_kinds SET is_active = ?, updated_at = ? WHERE id = ?
	`, active, r.Now(), id)
	if err != nil {
		return fmt.Errorf("updating resource kind active flag: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCascade removes a kind and purges its reservations dated after
// today, in one transaction. Past reservations are retained for audit.
// Returns the number of purged reservations.
func (r *KindRepository) DeleteCascade(ctx context.Context, id, today string) (int64, error) {
	var purged int64

	err := r.Transaction(func(tx *sql.Tx) error {
		n, err := DeleteFutureByKind(ctx, tx, id, today)
		if err != nil {
			return err
		}
		purged = n

		result, err := tx.ExecContext(ctx, "DELETE FROM resource_kinds WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting resource kind: %w", err)
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}
