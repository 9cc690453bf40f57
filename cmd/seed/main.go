package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/medbook/appointment-platform/internal/auth"
	"github.com/medbook/appointment-platform/internal/config"
	"github.com/medbook/appointment-platform/internal/db"
)

type seedUser struct {
	id   string
	name string
	role string
}

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "seed").Logger()
	log.Info().Msg("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctors := makeUsers(5, auth.RoleDoctor)
	patients := makeUsers(20, auth.RolePatient)

	if err := seedAppointments(context.Background(), pool, patients, doctors, 200); err != nil {
		log.Fatal().Err(err).Msg("seed appointments")
	}

	printDevTokens(cfg.JWTSecret, append(doctors[:2:2], patients[:3]...), log)

	log.Info().Msg("seed complete")
}

func makeUsers(count int, role string) []seedUser {
	users := make([]seedUser, 0, count)
	for i := 0; i < count; i++ {
		users = append(users, seedUser{
			id:   uuid.NewString(),
			name: gofakeit.Name(),
			role: role,
		})
	}
	return users
}

func seedAppointments(ctx context.Context, pool *pgxpool.Pool, patients, doctors []seedUser, count int) error {
	statuses := []string{"pending", "pending", "pending", "approved", "rejected", "completed", "cancelled"}

	const batchSize = 50

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			patient := patients[gofakeit.Number(0, len(patients)-1)]
			doctor := doctors[gofakeit.Number(0, len(doctors)-1)]
			status := statuses[gofakeit.Number(0, len(statuses)-1)]

			date := gofakeit.DateRange(time.Now(), time.Now().AddDate(0, 2, 0)).Format("2006-01-02")
			hour := gofakeit.Number(8, 17)
			timeOfDay := fmt.Sprintf("%02d:00", hour)

			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (id, patient_id, doctor_id, patient_name, doctor_name,
					appointment_date, appointment_time, reason, status, notes, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, now(), now())
			`, uuid.New(), patient.id, doctor.id, patient.name, doctor.name,
				date, timeOfDay, gofakeit.Sentence(6), status)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	return nil
}

// printDevTokens mints assertions for a few seeded users so the API can be
// exercised without a running identity provider.
func printDevTokens(secret string, users []seedUser, log zerolog.Logger) {
	verifier := auth.NewVerifier(secret)

	for _, u := range users {
		token, err := verifier.Sign(auth.Principal{
			UserID: u.id,
			Email:  gofakeit.Email(),
			Role:   u.role,
		}, 7*24*time.Hour)
		if err != nil {
			log.Error().Err(err).Str("user_id", u.id).Msg("mint dev token")
			continue
		}
		fmt.Printf("%s %s (%s)\n  token=%s\n", u.role, u.name, u.id, token)
	}
}
