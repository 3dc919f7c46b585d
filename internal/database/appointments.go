package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"localhire/internal/domain"
	"localhire/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const appointmentColumns = `id, client_id, client_name, client_email, contractor_id, slot_date, slot_time,
	amount, status, proof_image, has_been_rated, version, created_at, updated_at`

// CreateAppointmentWithSlot reserves the slot and inserts the appointment in one
// transaction. A taken slot yields domain.ErrSlotUnavailable.
func (db *DB) CreateAppointmentWithSlot(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.Status == "" {
		appt.Status = models.StatusPending
	}
	now := time.Now().UTC()

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO contractor_slots
			(contractor_id, slot_date, slot_time, appointment_id, created_at) VALUES (?, ?, ?, ?, ?)`),
			appt.ContractorID, appt.SlotDate, appt.SlotTime, appt.ID, now)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrSlotUnavailable
			}
			return fmt.Errorf("failed to reserve slot: %w", err)
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO appointments (`+appointmentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			appt.ID, appt.ClientID, appt.ClientName, appt.ClientEmail, appt.ContractorID,
			appt.SlotDate, appt.SlotTime, appt.Amount, appt.Status, appt.ProofImage,
			appt.HasBeenRated, 1, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	appt.Version = 1
	appt.CreatedAt = now
	appt.UpdatedAt = now
	return nil
}

func (db *DB) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := db.GetContext(ctx, &appt, db.Rebind(`SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

// FindAppointment matches on all three ids, so a caller only sees appointments they are part of.
func (db *DB) FindAppointment(ctx context.Context, id, clientID, contractorID string) (*models.Appointment, error) {
	var appt models.Appointment
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ? AND client_id = ? AND contractor_id = ?`
	err := db.GetContext(ctx, &appt, db.Rebind(query), id, clientID, contractorID)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}
	return &appt, nil
}

const updateAppointmentQuery = `UPDATE appointments
	SET status = ?, proof_image = ?, has_been_rated = ?, version = version + 1, updated_at = ?
	WHERE id = ? AND version = ?`

// UpdateAppointmentWithVersion writes the mutable fields of appt if the stored
// version still equals expectedVersion.
func (db *DB) UpdateAppointmentWithVersion(ctx context.Context, appt *models.Appointment, expectedVersion int64) error {
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, db.Rebind(updateAppointmentQuery),
		appt.Status, appt.ProofImage, appt.HasBeenRated, now, appt.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrConcurrentModification
	}
	appt.Version = expectedVersion + 1
	appt.UpdatedAt = now
	return nil
}

// CancelAppointmentWithVersion stores the cancelled status and frees the slot atomically.
func (db *DB) CancelAppointmentWithVersion(ctx context.Context, appt *models.Appointment, expectedVersion int64) error {
	now := time.Now().UTC()
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, tx.Rebind(updateAppointmentQuery),
			appt.Status, appt.ProofImage, appt.HasBeenRated, now, appt.ID, expectedVersion)
		if err != nil {
			return fmt.Errorf("failed to cancel appointment: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return domain.ErrConcurrentModification
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM contractor_slots
			WHERE contractor_id = ? AND slot_date = ? AND slot_time = ? AND appointment_id = ?`),
			appt.ContractorID, appt.SlotDate, appt.SlotTime, appt.ID)
		if err != nil {
			return fmt.Errorf("failed to release slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	appt.Version = expectedVersion + 1
	appt.UpdatedAt = now
	return nil
}

func appointmentWhere(f models.AppointmentFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.ClientID != "" {
		conds = append(conds, "client_id = ?")
		args = append(args, f.ClientID)
	}
	if f.ContractorID != "" {
		conds = append(conds, "contractor_id = ?")
		args = append(args, f.ContractorID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.NeedsProof {
		conds = append(conds, "proof_image <> ''")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListAppointments returns matching appointments, newest first.
func (db *DB) ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]*models.Appointment, error) {
	where, args := appointmentWhere(f)
	query := `SELECT ` + appointmentColumns + ` FROM appointments` + where + ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	appts := []*models.Appointment{}
	if err := db.SelectContext(ctx, &appts, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

func (db *DB) CountAppointments(ctx context.Context, f models.AppointmentFilter) (int, error) {
	where, args := appointmentWhere(f)
	var count int
	if err := db.GetContext(ctx, &count, db.Rebind(`SELECT COUNT(*) FROM appointments`+where), args...); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

// AppointmentStats aggregates earnings and counts, optionally for one contractor.
func (db *DB) AppointmentStats(ctx context.Context, contractorID string) (*models.AppointmentStats, error) {
	where, args := appointmentWhere(models.AppointmentFilter{ContractorID: contractorID})

	stats := &models.AppointmentStats{ByStatus: map[string]int{}}
	query := `SELECT COUNT(*), COUNT(DISTINCT client_id) FROM appointments` + where
	if err := db.QueryRowxContext(ctx, db.Rebind(query), args...).Scan(&stats.Appointments, &stats.Clients); err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}

	rows, err := db.QueryxContext(ctx, db.Rebind(`SELECT status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM appointments`+where+` GROUP BY status`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate appointments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
			sum    float64
		)
		if err := rows.Scan(&status, &count, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan appointment stats: %w", err)
		}
		stats.ByStatus[status] = count
		if models.AppointmentStatus(status) == models.StatusCompleted {
			stats.Earnings = sum
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
