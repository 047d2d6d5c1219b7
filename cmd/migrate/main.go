// cmd/migrate/main.go
// Imports a legacy MySQL registration database into PostgreSQL. Every row goes
// through the registry so bib and runner uniqueness are checked before anything is written.
//
// Expected MySQL tables:
//
//	categories(id, name, min_age, max_age)
//	events(id, name, date, description, state, distances)    -- distances is a comma list, e.g. "10K,21K"
//	event_categories(event_id, category_id)
//	runners(id, name, phone, email, birth_date, sex, blood_type, emergency_contact)
//	registrations(id, event_id, runner_id, category_id, distance, shirt_size, bib, state, created_at, elapsed_seconds)
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/races?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/padraicbc/racereg/config"
	bundb "github.com/padraicbc/racereg/db"
	applog "github.com/padraicbc/racereg/logger"
	"github.com/padraicbc/racereg/models"
	"github.com/padraicbc/racereg/ranking"
	"github.com/padraicbc/racereg/registry"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadDB()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/races?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}
	logger.Info("connected to MySQL")

	snap, err := readLegacy(ctx, myDB)
	if err != nil {
		logger.Fatal("read legacy tables", zap.Error(err))
	}

	// The registry enforces the domain rules; a bad row aborts before PostgreSQL is touched.
	store := registry.New(logger, ranking.Options{})
	if err := store.Restore(snap); err != nil {
		logger.Fatal("legacy data violates registration rules", zap.Error(err))
	}

	// --- PostgreSQL ---
	pgDB, err := bundb.Setup(ctx, cfg)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pgDB.Close()

	if err := bundb.CreateTables(ctx, pgDB); err != nil {
		logger.Fatal("create tables", zap.Error(err))
	}
	if err := bundb.NewRepository(pgDB).SaveSnapshot(ctx, store.Snapshot()); err != nil {
		logger.Fatal("write snapshot", zap.Error(err))
	}

	logger.Info("migration complete",
		zap.Int("categories", len(snap.Categories)),
		zap.Int("events", len(snap.Events)),
		zap.Int("runners", len(snap.Runners)),
		zap.Int("registrations", len(snap.Registrations)),
		zap.Int("results", len(snap.Results)),
	)
}

// --- helpers ---

func nullStr(n sql.NullString) string {
	if !n.Valid {
		return ""
	}
	return strings.TrimSpace(n.String)
}

func nullTime(n sql.NullTime) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return n.Time.UTC()
}

func parseDistances(raw string) ([]models.Distance, error) {
	var out []models.Distance
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := models.ParseDistance(part)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// readLegacy reads each table on its own connection and assembles a snapshot.
func readLegacy(ctx context.Context, myDB *sql.DB) (registry.Snapshot, error) {
	var snap registry.Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.Categories, err = readCategories(ctx, myDB)
		return wrap("categories", err)
	})
	g.Go(func() (err error) {
		snap.Events, err = readEvents(ctx, myDB)
		return wrap("events", err)
	})
	g.Go(func() (err error) {
		snap.EventCategories, err = readEventCategories(ctx, myDB)
		return wrap("event_categories", err)
	})
	g.Go(func() (err error) {
		snap.Runners, err = readRunners(ctx, myDB)
		return wrap("runners", err)
	})
	g.Go(func() (err error) {
		snap.Registrations, snap.Results, err = readRegistrations(ctx, myDB)
		return wrap("registrations", err)
	})

	if err := g.Wait(); err != nil {
		return registry.Snapshot{}, err
	}
	return snap, nil
}

func wrap(table string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", table, err)
	}
	return nil
}

// --- per-table readers ---

func readCategories(ctx context.Context, myDB *sql.DB) ([]*models.Category, error) {
	rows, err := myDB.QueryContext(ctx, "SELECT id, name, min_age, max_age FROM categories")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Category
	for rows.Next() {
		var (
			id             int64
			name           string
			minAge, maxAge int
		)
		if err := rows.Scan(&id, &name, &minAge, &maxAge); err != nil {
			return nil, err
		}
		c, err := models.NewCategory(id, name, minAge, maxAge)
		if err != nil {
			return nil, fmt.Errorf("category %d: %w", id, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func readEvents(ctx context.Context, myDB *sql.DB) ([]*models.Event, error) {
	rows, err := myDB.QueryContext(ctx, "SELECT id, name, date, description, state, distances FROM events")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		var (
			id                       int64
			name, state              string
			date                     time.Time
			description, distanceCSV sql.NullString
		)
		if err := rows.Scan(&id, &name, &date, &description, &state, &distanceCSV); err != nil {
			return nil, err
		}
		distances, err := parseDistances(nullStr(distanceCSV))
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", id, err)
		}
		ev, err := models.NewEvent(id, name, date.UTC(), nullStr(description), distances)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", id, err)
		}
		if ev.State, err = models.ParseEventState(state); err != nil {
			return nil, fmt.Errorf("event %d: %w", id, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func readEventCategories(ctx context.Context, myDB *sql.DB) ([]models.EventCategory, error) {
	rows, err := myDB.QueryContext(ctx, "SELECT event_id, category_id FROM event_categories")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EventCategory
	for rows.Next() {
		var ec models.EventCategory
		if err := rows.Scan(&ec.EventID, &ec.CategoryID); err != nil {
			return nil, err
		}
		out = append(out, ec)
	}
	return out, rows.Err()
}

func readRunners(ctx context.Context, myDB *sql.DB) ([]*models.Runner, error) {
	rows, err := myDB.QueryContext(ctx, `SELECT id, name, phone, email, birth_date, sex, blood_type, emergency_contact FROM runners`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Runner
	for rows.Next() {
		var (
			id, name                            string
			phone, email, sex, blood, emergency sql.NullString
			birth                               sql.NullTime
		)
		if err := rows.Scan(&id, &name, &phone, &email, &birth, &sex, &blood, &emergency); err != nil {
			return nil, err
		}
		r, err := models.NewRunner(id, name)
		if err != nil {
			return nil, fmt.Errorf("runner %q: %w", id, err)
		}
		r.Phone = nullStr(phone)
		r.Email = nullStr(email)
		r.BirthDate = nullTime(birth)
		r.Sex = strings.ToUpper(nullStr(sex))
		r.BloodType = strings.ToUpper(nullStr(blood))
		r.EmergencyContact = nullStr(emergency)
		out = append(out, r)
	}
	return out, rows.Err()
}

func readRegistrations(ctx context.Context, myDB *sql.DB) ([]*models.Registration, []*models.TimingResult, error) {
	rows, err := myDB.QueryContext(ctx, `
		SELECT id, event_id, runner_id, category_id, distance, shirt_size, bib, state, created_at, elapsed_seconds
		FROM registrations`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		regs    []*models.Registration
		results []*models.TimingResult
	)
	for rows.Next() {
		var (
			reg                   models.Registration
			distance, size, state string
			created               sql.NullTime
			elapsed               sql.NullFloat64
		)
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.RunnerID, &reg.CategoryID,
			&distance, &size, &reg.Bib, &state, &created, &elapsed); err != nil {
			return nil, nil, err
		}
		if reg.Distance, err = models.ParseDistance(distance); err != nil {
			return nil, nil, fmt.Errorf("registration %d: %w", reg.ID, err)
		}
		if reg.ShirtSize, err = models.ParseShirtSize(size); err != nil {
			return nil, nil, fmt.Errorf("registration %d: %w", reg.ID, err)
		}
		if reg.State, err = models.ParseRegistrationState(state); err != nil {
			return nil, nil, fmt.Errorf("registration %d: %w", reg.ID, err)
		}
		if reg.Bib <= 0 {
			return nil, nil, fmt.Errorf("registration %d: %w", reg.ID, &models.ValidationError{Field: "bib", Msg: "must be > 0"})
		}
		reg.CreatedAt = nullTime(created)
		if reg.CreatedAt.IsZero() {
			reg.CreatedAt = time.Now().UTC()
		}

		if elapsed.Valid {
			if reg.State != models.StateConfirmed {
				return nil, nil, fmt.Errorf("registration %d: %w", reg.ID, &models.StateError{Op: "import time", State: reg.State.String()})
			}
			res, err := models.NewTimingResult(elapsed.Float64)
			if err != nil {
				return nil, nil, fmt.Errorf("registration %d: %w", reg.ID, err)
			}
			res.RegistrationID = reg.ID
			results = append(results, res)
		}
		regs = append(regs, &reg)
	}
	return regs, results, rows.Err()
}
