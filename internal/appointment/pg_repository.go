package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, patient_id, doctor_id, patient_name, doctor_name,
	appointment_date, appointment_time, reason, status, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.PatientName,
		&a.DoctorName,
		&a.AppointmentDate,
		&a.AppointmentTime,
		&a.Reason,
		&a.Status,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Notes = notes
	return &a, nil
}

func (r *PgRepository) CreatePending(ctx context.Context, p NewAppointmentParams) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, patient_name, doctor_name,
			appointment_date, appointment_time, reason, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', NULL, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, p.PatientID, p.DoctorID, p.PatientName, p.DoctorName,
		p.AppointmentDate, p.AppointmentTime, p.Reason)

	return scanAppointment(row)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetByIDForDoctor(ctx context.Context, id uuid.UUID, doctorID string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		  AND doctor_id = $2
	`, id, doctorID)
	return scanAppointment(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY created_at DESC
	`, doctorID)
}

func (r *PgRepository) list(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateStatusByDoctor(ctx context.Context, id uuid.UUID, doctorID string, from, to Status, notes *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
		    notes = COALESCE($4, notes),
		    updated_at = now()
		WHERE id = $1
		  AND doctor_id = $2
		  AND status = $5
		RETURNING `+appointmentColumns+`
	`, id, doctorID, to, notes, from)

	return scanAppointment(row)
}

func (r *PgRepository) CancelByPatient(ctx context.Context, id uuid.UUID, patientID string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    updated_at = now()
		WHERE id = $1
		  AND patient_id = $2
		  AND status = 'pending'
		RETURNING `+appointmentColumns+`
	`, id, patientID)

	return scanAppointment(row)
}
