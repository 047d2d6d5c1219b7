package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"

	"github.com/padraicbc/racereg/models"
	"github.com/padraicbc/racereg/registry"
)

// Repository persists registry aggregates with bun.
type Repository struct {
	db bun.IDB
}

// NewRepository wraps a bun database or transaction.
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// UserByName loads one API user.
func (r *Repository) UserByName(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := r.db.NewSelect().Model(user).
		Where("username = ?", username).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SaveUser creates a user or replaces its password.
func (r *Repository) SaveUser(ctx context.Context, user *models.User) error {
	_, err := r.db.NewInsert().Model(user).
		On("CONFLICT (username) DO UPDATE SET password = EXCLUDED.password").
		Exec(ctx)
	return err
}

// SaveCategory upserts a category.
func (r *Repository) SaveCategory(ctx context.Context, c *models.Category) error {
	_, err := r.db.NewInsert().Model(c).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("min_age = EXCLUDED.min_age").
		Set("max_age = EXCLUDED.max_age").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save category %d: %w", c.ID, err)
	}
	return nil
}

// SaveRunner upserts a runner profile.
func (r *Repository) SaveRunner(ctx context.Context, ru *models.Runner) error {
	_, err := r.db.NewInsert().Model(ru).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("phone = EXCLUDED.phone").
		Set("email = EXCLUDED.email").
		Set("birth_date = EXCLUDED.birth_date").
		Set("sex = EXCLUDED.sex").
		Set("blood_type = EXCLUDED.blood_type").
		Set("emergency_contact = EXCLUDED.emergency_contact").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save runner %s: %w", ru.ID, err)
	}
	return nil
}

// SaveEvent writes an event snapshot with its category links, registrations and times.
// Rows of registrations no longer in the event are removed.
func (r *Repository) SaveEvent(ctx context.Context, ev *models.Event) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := saveEvent(ctx, tx, ev); err != nil {
			return fmt.Errorf("save event %d: %w", ev.ID, err)
		}
		return nil
	})
}

func saveEvent(ctx context.Context, tx bun.Tx, ev *models.Event) error {
	_, err := tx.NewInsert().Model(ev).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("date = EXCLUDED.date").
		Set("description = EXCLUDED.description").
		Set("state = EXCLUDED.state").
		Set("distances = EXCLUDED.distances").
		Exec(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.NewDelete().Model((*models.EventCategory)(nil)).
		Where("event_id = ?", ev.ID).
		Exec(ctx); err != nil {
		return err
	}
	if len(ev.Categories) > 0 {
		links := make([]models.EventCategory, len(ev.Categories))
		for i, c := range ev.Categories {
			links[i] = models.EventCategory{EventID: ev.ID, CategoryID: c.ID}
		}
		if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
			return err
		}
	}

	eventRegs := tx.NewSelect().Model((*models.Registration)(nil)).
		Column("id").
		Where("event_id = ?", ev.ID)
	if _, err := tx.NewDelete().Model((*models.TimingResult)(nil)).
		Where("registration_id IN (?)", eventRegs).
		Exec(ctx); err != nil {
		return err
	}

	ids := make([]int64, len(ev.Registrations))
	var results []*models.TimingResult
	for i, reg := range ev.Registrations {
		ids[i] = reg.ID
		if reg.Result != nil {
			results = append(results, reg.Result)
		}
	}
	stale := tx.NewDelete().Model((*models.Registration)(nil)).Where("event_id = ?", ev.ID)
	if len(ids) > 0 {
		stale = stale.Where("id NOT IN (?)", bun.In(ids))
	}
	if _, err := stale.Exec(ctx); err != nil {
		return err
	}

	if len(ev.Registrations) > 0 {
		regs := ev.Registrations
		if _, err := tx.NewInsert().Model(&regs).
			On("CONFLICT (id) DO UPDATE").
			Set("state = EXCLUDED.state").
			Exec(ctx); err != nil {
			return err
		}
	}
	if len(results) > 0 {
		if _, err := tx.NewInsert().Model(&results).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot writes a whole registry snapshot in one transaction.
func (r *Repository) SaveSnapshot(ctx context.Context, snap registry.Snapshot) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		repo := NewRepository(tx)
		for _, c := range snap.Categories {
			if err := repo.SaveCategory(ctx, c); err != nil {
				return err
			}
		}
		for _, ru := range snap.Runners {
			if err := repo.SaveRunner(ctx, ru); err != nil {
				return err
			}
		}
		for _, ev := range snap.Events {
			if err := saveEvent(ctx, tx, ev); err != nil {
				return fmt.Errorf("save event %d: %w", ev.ID, err)
			}
		}
		return nil
	})
}

// Load reads every table concurrently into a registry snapshot.
func (r *Repository) Load(ctx context.Context) (registry.Snapshot, error) {
	var snap registry.Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.db.NewSelect().Model(&snap.Categories).Order("id").Scan(ctx)
	})
	g.Go(func() error {
		return r.db.NewSelect().Model(&snap.Events).Order("id").Scan(ctx)
	})
	g.Go(func() error {
		return r.db.NewSelect().Model(&snap.EventCategories).Order("event_id", "category_id").Scan(ctx)
	})
	g.Go(func() error {
		return r.db.NewSelect().Model(&snap.Runners).Order("id").Scan(ctx)
	})
	g.Go(func() error {
		return r.db.NewSelect().Model(&snap.Registrations).Order("id").Scan(ctx)
	})
	g.Go(func() error {
		return r.db.NewSelect().Model(&snap.Results).Scan(ctx)
	})

	if err := g.Wait(); err != nil {
		return registry.Snapshot{}, fmt.Errorf("load registry: %w", err)
	}
	return snap, nil
}
