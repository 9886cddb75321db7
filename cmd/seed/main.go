package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"schoolregistry/internal/auth"
	"schoolregistry/internal/config"
	"schoolregistry/internal/db"
	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
	"schoolregistry/internal/repository"
	"schoolregistry/internal/service"
)

// seedSchool is one entry of the schools seed file. Entries with an id are
// upserted; entries without one are always created.
type seedSchool struct {
	ID string `json:"id"`
	service.SchoolPatch
}

func main() {
	schoolsFile := flag.String("schools", "", "path to a JSON array of schools to upsert")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	logger.Info("starting seed")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	gormDB, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	userRepo := repository.NewUserRepository(gormDB)
	hasher := auth.NewHasher(cfg.BcryptCost, cfg.HashWorkers)
	users := service.NewUserService(userRepo, repository.NewSessionRepository(gormDB), hasher, logger)

	if username := os.Getenv("SEED_ADMIN_USERNAME"); username != "" {
		created, err := seedAdmin(ctx, userRepo, users, service.NewUser{
			Username: username,
			Email:    os.Getenv("SEED_ADMIN_EMAIL"),
			Password: os.Getenv("SEED_ADMIN_PASSWORD"),
			Role:     model.RoleAdmin,
		})
		if err != nil {
			logger.Error("failed to seed admin", "username", username, "error", err)
			os.Exit(1)
		}
		logger.Info("admin seeded", "username", username, "created", created)
	}

	if *schoolsFile == "" {
		logger.Info("no schools file given, skipping schools")
		return
	}

	entries, err := readSchools(*schoolsFile)
	if err != nil {
		logger.Error("failed to read schools", "file", *schoolsFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded schools", "count", len(entries))

	schools := service.NewSchoolService(repository.NewSchoolRepository(gormDB), nil, 0, logger)
	seeded, updated, err := seedSchools(ctx, schools, entries)
	if err != nil {
		logger.Error("failed to seed schools", "error", err)
		os.Exit(1)
	}

	logger.Info("seed completed",
		"created", seeded,
		"updated", updated,
		"total", seeded+updated,
	)
}

// seedAdmin creates the admin account, or promotes an existing account with
// the same username back to admin. The password of an existing account is
// left alone.
func seedAdmin(ctx context.Context, repo repository.UserRepository, users service.UserService, in service.NewUser) (bool, error) {
	existing, err := repo.FindByUsername(ctx, in.Username)
	if err != nil && !errors.Is(err, errors.ErrUserNotFound) {
		return false, err
	}

	if existing != nil {
		role := model.RoleAdmin
		if _, err := users.UpdateUser(ctx, existing.ID, service.UserUpdate{Role: &role}); err != nil {
			return false, err
		}
		return false, nil
	}

	if in.Email == "" || in.Password == "" {
		return false, fmt.Errorf("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required to create %q", in.Username)
	}
	if _, err := users.AddUser(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}

func readSchools(path string) ([]seedSchool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []seedSchool
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return entries, nil
}

// seedSchools creates new schools and updates the ones already stored.
func seedSchools(ctx context.Context, svc service.SchoolService, entries []seedSchool) (seeded int, updated int, err error) {
	for i, entry := range entries {
		var id uuid.UUID
		if entry.ID != "" {
			id, err = uuid.Parse(entry.ID)
			if err != nil {
				return seeded, updated, fmt.Errorf("entry %d: invalid id %q: %w", i, entry.ID, err)
			}

			_, err = svc.Get(ctx, id)
			switch {
			case err == nil:
				if _, err := svc.Update(ctx, id, entry.SchoolPatch); err != nil {
					return seeded, updated, fmt.Errorf("error updating school %s: %w", id, err)
				}
				updated++
				continue
			case !errors.Is(err, errors.ErrSchoolNotFound):
				return seeded, updated, fmt.Errorf("error checking school %s: %w", id, err)
			}
		}

		school := toSchool(entry.SchoolPatch)
		school.ID = id
		if _, err := svc.Create(ctx, school); err != nil {
			return seeded, updated, fmt.Errorf("error creating school %q: %w", school.Name, err)
		}
		seeded++
	}

	return seeded, updated, nil
}

func toSchool(p service.SchoolPatch) *model.School {
	s := &model.School{
		Name:       val(p.Name),
		Latitude:   val(p.Latitude),
		Longitude:  val(p.Longitude),
		Province:   val(p.Province),
		District:   val(p.District),
		Palika:     val(p.Palika),
		Status:     val(p.Status),
		LastSeen:   p.LastSeen,
		LoomaID:    val(p.LoomaID),
		LoomaCount: val(p.LoomaCount),
	}
	if c := p.Contact; c != nil {
		s.Contact = model.Contact{Email: val(c.Email), Phone: val(c.Phone), Headmaster: val(c.Headmaster)}
	}
	if l := p.Looma; l != nil {
		s.Looma = model.LoomaInfo{ID: val(l.ID), SerialNumber: val(l.SerialNumber), Version: val(l.Version), LastUpdate: l.LastUpdate}
	}
	return s
}

func val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
