package database

import (
	"context"
	"fmt"
	"time"

	"localhire/internal/domain"
	"localhire/internal/models"

	"github.com/google/uuid"
)

const contractorColumns = `id, name, email, image, speciality, degree, experience, about, fees, address,
	available, created_at, updated_at`

func (db *DB) CreateContractor(ctx context.Context, c *models.Contractor) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, db.Rebind(`INSERT INTO contractors (`+contractorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, c.Name, c.Email, c.Image, c.Speciality, c.Degree, c.Experience, c.About,
		c.Fees, c.Address, c.Available, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrContractorExists
		}
		return fmt.Errorf("failed to create contractor: %w", err)
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// UpsertContractor inserts or refreshes a contractor by id. Used for seeding.
func (db *DB) UpsertContractor(ctx context.Context, c *models.Contractor) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, db.Rebind(`INSERT INTO contractors (`+contractorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			image = excluded.image,
			speciality = excluded.speciality,
			degree = excluded.degree,
			experience = excluded.experience,
			about = excluded.about,
			fees = excluded.fees,
			address = excluded.address,
			available = excluded.available,
			updated_at = excluded.updated_at`),
		c.ID, c.Name, c.Email, c.Image, c.Speciality, c.Degree, c.Experience, c.About,
		c.Fees, c.Address, c.Available, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrContractorExists
		}
		return fmt.Errorf("failed to upsert contractor %s: %w", c.ID, err)
	}
	return nil
}

// GetContractor loads a contractor together with its booked slots.
func (db *DB) GetContractor(ctx context.Context, id string) (*models.Contractor, error) {
	var c models.Contractor
	err := db.GetContext(ctx, &c, db.Rebind(`SELECT `+contractorColumns+` FROM contractors WHERE id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrContractorNotFound
		}
		return nil, fmt.Errorf("failed to get contractor: %w", err)
	}

	c.SlotsBooked, err = db.GetBookedSlots(ctx, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) ListContractors(ctx context.Context) ([]*models.Contractor, error) {
	contractors := []*models.Contractor{}
	err := db.SelectContext(ctx, &contractors, `SELECT `+contractorColumns+` FROM contractors ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contractors: %w", err)
	}
	return contractors, nil
}

func (db *DB) CountContractors(ctx context.Context) (int, error) {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM contractors`); err != nil {
		return 0, fmt.Errorf("failed to count contractors: %w", err)
	}
	return n, nil
}

func (db *DB) SetContractorAvailability(ctx context.Context, id string, available bool) error {
	result, err := db.ExecContext(ctx, db.Rebind(`UPDATE contractors SET available = ?, updated_at = ? WHERE id = ?`),
		available, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update contractor availability: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrContractorNotFound
	}
	return nil
}

// GetBookedSlots returns the reserved labels per date key in reservation order.
func (db *DB) GetBookedSlots(ctx context.Context, contractorID string) (models.BookedSlots, error) {
	rows, err := db.QueryxContext(ctx, db.Rebind(`SELECT slot_date, slot_time FROM contractor_slots
		WHERE contractor_id = ? ORDER BY created_at, slot_date, slot_time`), contractorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booked slots: %w", err)
	}
	defer rows.Close()

	booked := models.BookedSlots{}
	for rows.Next() {
		var date, label string
		if err := rows.Scan(&date, &label); err != nil {
			return nil, fmt.Errorf("failed to scan booked slot: %w", err)
		}
		booked.Add(date, label)
	}
	return booked, rows.Err()
}
