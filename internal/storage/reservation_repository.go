package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/campus-reserve/backend/internal/storage/models"
)

// ReservationRepository provides data access for reservations and their slot
// assignments.
type ReservationRepository struct {
	BaseRepository
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *DB) *ReservationRepository {
	return &ReservationRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a reservation and, for slotted kinds, all of its slot rows
// in one transaction. The insert is all-or-nothing: any unique-index
// rejection rolls the whole reservation back and is classified as
// ErrDuplicateOwner or ErrRaceLost.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	res.ID = GenerateID()
	res.CreatedAt = r.Now()

	err := r.Transaction(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (id, resource_kind, date, owner_id, seat, is_slotted, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			res.ID, res.ResourceKind, res.Date, res.OwnerID,
			res.Seat, res.IsSlotted, res.Note, res.CreatedAt,
		)
		if err != nil {
			return err
		}

		for _, slot := range res.Slots {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO reservation_slots (reservation_id, resource_kind, date, slot, owner_id)
				VALUES (?, ?, ?, ?, ?)
			`, res.ID, res.ResourceKind, res.Date, slot, res.OwnerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classifyInsertError(err)
	}
	return nil
}

// AddSlots appends slot rows to an existing reservation. Used when an owner
// amends a slotted reservation with additional time windows on the same
// date. All-or-nothing like Create.
func (r *ReservationRepository) AddSlots(ctx context.Context, res *models.Reservation, slots []string) error {
	err := r.Transaction(func(tx *sql.Tx) error {
		for _, slot := range slots {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO reservation_slots (reservation_id, resource_kind, date, slot, owner_id)
				VALUES (?, ?, ?, ?, ?)
			`, res.ID, res.ResourceKind, res.Date, slot, res.OwnerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classifyInsertError(err)
	}
	return nil
}

// GetByID retrieves a reservation with its slot assignments.
// Returns ErrNotFound if no row exists.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	res := &models.Reservation{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, resource_kind, date, owner_id, seat, is_slotted, note, created_at
		FROM reservations WHERE id = ?
	`, id).Scan(
		&res.ID, &res.ResourceKind, &res.Date, &res.OwnerID,
		&res.Seat, &res.IsSlotted, &res.Note, &res.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying reservation: %w", err)
	}

	if res.IsSlotted {
		if res.Slots, err = r.slotsForReservation(ctx, res.ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// GetOwnerReservation retrieves the owner's reservation for a kind and date,
// or nil if they hold none.
func (r *ReservationRepository) GetOwnerReservation(ctx context.Context, kind, date, ownerID string) (*models.Reservation, error) {
	res := &models.Reservation{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, resource_kind, date, owner_id, seat, is_slotted, note, created_at
		FROM reservations
		WHERE resource_kind = ? AND date = ? AND owner_id = ?
	`, kind, date, ownerID).Scan(
		&res.ID, &res.ResourceKind, &res.Date, &res.OwnerID,
		&res.Seat, &res.IsSlotted, &res.Note, &res.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying owner reservation: %w", err)
	}

	if res.IsSlotted {
		if res.Slots, err = r.slotsForReservation(ctx, res.ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// CountForDate returns the number of reservations holding a kind on a date.
func (r *ReservationRepository) CountForDate(ctx context.Context, kind, date string) (int, error) {
	var count int
	err := r.DB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations WHERE resource_kind = ? AND date = ?
	`, kind, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting reservations: %w", err)
	}
	return count, nil
}

// NextFreeSeat computes the lowest seat number not occupied for a kind and
// date. Cancellations leave holes; admission always fills the lowest hole so
// seat numbers stay below capacity.
func (r *ReservationRepository) NextFreeSeat(ctx context.Context, kind, date string) (int, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT seat FROM reservations
		WHERE resource_kind = ? AND date = ? AND is_slotted = 0
		ORDER BY seat
	`, kind, date)
	if err != nil {
		return 0, fmt.Errorf("querying seats: %w", err)
	}
	defer rows.Close()

	var taken []int
	for rows.Next() {
		var seat int
		if err := rows.Scan(&seat); err != nil {
			return 0, fmt.Errorf("scanning seat: %w", err)
		}
		taken = append(taken, seat)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	sort.Ints(taken)
	next := 0
	for _, s := range taken {
		if s == next {
			next++
		}
	}
	return next, nil
}

// OccupiedSlots returns all slot assignments for a kind and date.
func (r *ReservationRepository) OccupiedSlots(ctx context.Context, kind, date string) ([]models.SlotAssignment, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT reservation_id, resource_kind, date, slot, owner_id
		FROM reservation_slots
		WHERE resource_kind = ? AND date = ?
		ORDER BY slot
	`, kind, date)
	if err != nil {
		return nil, fmt.Errorf("querying slot assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.SlotAssignment
	for rows.Next() {
		var a models.SlotAssignment
		if err := rows.Scan(&a.ReservationID, &a.ResourceKind, &a.Date, &a.Slot, &a.OwnerID); err != nil {
			return nil, fmt.Errorf("scanning slot assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ListForDate retrieves all reservations holding a kind on a date, oldest
// first.
func (r *ReservationRepository) ListForDate(ctx context.Context, kind, date string) ([]models.Reservation, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, resource_kind, date, owner_id, seat, is_slotted, note, created_at
		FROM reservations
		WHERE resource_kind = ? AND date = ?
		ORDER BY created_at
	`, kind, date)
	if err != nil {
		return nil, fmt.Errorf("querying reservations: %w", err)
	}
	defer rows.Close()

	return r.scanReservations(ctx, rows)
}

// ListByOwner retrieves all of an owner's reservations, newest date first.
func (r *ReservationRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Reservation, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, resource_kind, date, owner_id, seat, is_slotted, note, created_at
		FROM reservations
		WHERE owner_id = ?
		ORDER BY date DESC, created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying owner reservations: %w", err)
	}
	defer rows.Close()

	return r.scanReservations(ctx, rows)
}

// Delete removes a reservation; slot rows cascade.
// Returns ErrNotFound when the row is already gone, so a second cancel of
// the same reservation never double-frees capacity.
func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting reservation: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFutureByKind removes reservations of a kind dated strictly after
// today, inside the caller's transaction. Past rows are retained for audit.
func DeleteFutureByKind(ctx context.Context, tx *sql.Tx, kind, today string) (int64, error) {
	result, err := tx.ExecContext(ctx, `
		DELETE FROM reservations WHERE resource_kind = ? AND date > ?
	`, kind, today)
	if err != nil {
		return 0, fmt.Errorf("purging future reservations: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (r *ReservationRepository) slotsForReservation(ctx context.Context, id string) ([]string, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT slot FROM reservation_slots WHERE reservation_id = ? ORDER BY slot
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying reservation slots: %w", err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("scanning slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (r *ReservationRepository) scanReservations(ctx context.Context, rows *sql.Rows) ([]models.Reservation, error) {
	var reservations []models.Reservation
	for rows.Next() {
		var res models.Reservation
		if err := rows.Scan(
			&res.ID, &res.ResourceKind, &res.Date, &res.OwnerID,
			&res.Seat, &res.IsSlotted, &res.Note, &res.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range reservations {
		if !reservations[i].IsSlotted {
			continue
		}
		slots, err := r.slotsForReservation(ctx, reservations[i].ID)
		if err != nil {
			return nil, err
		}
		reservations[i].Slots = slots
	}
	return reservations, nil
}
