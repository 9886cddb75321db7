package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"schoolregistry/internal/cache"
	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
	"schoolregistry/internal/repository"
)

const schoolStatsCacheKey = "schools:stats"

// ContactPatch carries partial contact changes.
type ContactPatch struct {
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Headmaster *string `json:"headmaster,omitempty"`
}

// LoomaPatch carries partial device changes.
type LoomaPatch struct {
	ID           *string    `json:"id,omitempty"`
	SerialNumber *string    `json:"serialNumber,omitempty"`
	Version      *string    `json:"version,omitempty"`
	LastUpdate   *time.Time `json:"lastUpdate,omitempty"`
}

// SchoolPatch is a partial school update. Absent fields, including absent
// fields of the nested objects, keep their stored values.
type SchoolPatch struct {
	Name       *string             `json:"name,omitempty"`
	Latitude   *decimal.Decimal    `json:"latitude,omitempty"`
	Longitude  *decimal.Decimal    `json:"longitude,omitempty"`
	Contact    *ContactPatch       `json:"contact,omitempty"`
	Province   *string             `json:"province,omitempty"`
	District   *string             `json:"district,omitempty"`
	Palika     *string             `json:"palika,omitempty"`
	Status     *model.SchoolStatus `json:"status,omitempty"`
	LastSeen   *time.Time          `json:"lastSeen,omitempty"`
	LoomaID    *string             `json:"loomaId,omitempty"`
	LoomaCount *int                `json:"loomaCount,omitempty"`
	Looma      *LoomaPatch         `json:"looma,omitempty"`
}

// columns flattens the patch into column updates.
func (p SchoolPatch) columns() map[string]any {
	cols := make(map[string]any)
	set := func(col string, present bool, v any) {
		if present {
			cols[col] = v
		}
	}
	set("name", p.Name != nil, deref(p.Name))
	set("latitude", p.Latitude != nil, deref(p.Latitude))
	set("longitude", p.Longitude != nil, deref(p.Longitude))
	set("province", p.Province != nil, deref(p.Province))
	set("district", p.District != nil, deref(p.District))
	set("palika", p.Palika != nil, deref(p.Palika))
	set("status", p.Status != nil, deref(p.Status))
	set("last_seen", p.LastSeen != nil, p.LastSeen)
	set("looma_id", p.LoomaID != nil, deref(p.LoomaID))
	set("looma_count", p.LoomaCount != nil, deref(p.LoomaCount))
	if c := p.Contact; c != nil {
		set("contact_email", c.Email != nil, deref(c.Email))
		set("contact_phone", c.Phone != nil, deref(c.Phone))
		set("contact_headmaster", c.Headmaster != nil, deref(c.Headmaster))
	}
	if l := p.Looma; l != nil {
		set("device_id", l.ID != nil, deref(l.ID))
		set("device_serial_number", l.SerialNumber != nil, deref(l.SerialNumber))
		set("device_version", l.Version != nil, deref(l.Version))
		set("device_last_update", l.LastUpdate != nil, l.LastUpdate)
	}
	return cols
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// SchoolService exposes school registry operations.
type SchoolService interface {
	List(ctx context.Context, filter repository.SchoolFilter) ([]model.School, error)
	Stats(ctx context.Context) (*model.SchoolStats, error)
	Get(ctx context.Context, id uuid.UUID) (*model.School, error)
	Create(ctx context.Context, school *model.School) (*model.School, error)
	Update(ctx context.Context, id uuid.UUID, patch SchoolPatch) (*model.School, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.SchoolStatus) (*model.School, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type schoolService struct {
	repo     repository.SchoolRepository
	cache    *cache.Client
	statsTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewSchoolService builds a SchoolService. cache may be nil.
func NewSchoolService(repo repository.SchoolRepository, cache *cache.Client, statsTTL time.Duration, logger *slog.Logger) SchoolService {
	return &schoolService{repo: repo, cache: cache, statsTTL: statsTTL, logger: logger, now: time.Now}
}

func (s *schoolService) List(ctx context.Context, filter repository.SchoolFilter) ([]model.School, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", errors.ErrInvalidInput, filter.Status)
	}
	schools, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return schools, nil
}

// Stats returns per-status counts, served from cache while fresh.
func (s *schoolService) Stats(ctx context.Context) (*model.SchoolStats, error) {
	if data, _ := s.cache.Get(ctx, schoolStatsCacheKey); data != nil {
		var cached model.SchoolStats
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}

	if payload, err := json.Marshal(stats); err == nil {
		_ = s.cache.Set(ctx, schoolStatsCacheKey, payload, s.statsTTL)
	}
	return stats, nil
}

func (s *schoolService) Get(ctx context.Context, id uuid.UUID) (*model.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Internal(err)
	}
	return school, nil
}

func (s *schoolService) Create(ctx context.Context, school *model.School) (*model.School, error) {
	if school.Status == "" {
		school.Status = model.SchoolStatusOffline
	}
	if err := validateSchool(school.Status, &school.Latitude, &school.Longitude); err != nil {
		return nil, err
	}

	if school.ID == uuid.Nil {
		school.ID = uuid.New()
	}
	now := s.now().UTC()
	school.CreatedAt = now
	school.UpdatedAt = now
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, errors.Internal(err)
	}

	s.invalidateStats(ctx)
	s.logger.Info("school created", "school_id", school.ID)
	return school, nil
}

func (s *schoolService) Update(ctx context.Context, id uuid.UUID, patch SchoolPatch) (*model.School, error) {
	if patch.Status != nil && *patch.Status == "" {
		return nil, fmt.Errorf("%w: status must not be empty", errors.ErrInvalidInput)
	}
	if err := validateSchool(deref(patch.Status), patch.Latitude, patch.Longitude); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, patch.columns())
}

func (s *schoolService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SchoolStatus) (*model.School, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", errors.ErrInvalidInput, status)
	}
	return s.apply(ctx, id, map[string]any{"status": status})
}

func (s *schoolService) apply(ctx context.Context, id uuid.UUID, cols map[string]any) (*model.School, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	cols["updated_at"] = s.now().UTC()
	if err := s.repo.UpdateFields(ctx, id, cols); err != nil {
		return nil, errors.Internal(err)
	}

	s.invalidateStats(ctx)
	return s.Get(ctx, id)
}

func (s *schoolService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return err
		}
		return errors.Internal(err)
	}
	s.invalidateStats(ctx)
	s.logger.Info("school deleted", "school_id", id)
	return nil
}

func (s *schoolService) invalidateStats(ctx context.Context) {
	_ = s.cache.Delete(ctx, schoolStatsCacheKey)
}

var (
	maxLatitude  = decimal.NewFromInt(90)
	maxLongitude = decimal.NewFromInt(180)
)

// validateSchool checks the fields that are present. An empty status is
// treated as absent.
func validateSchool(status model.SchoolStatus, lat, lng *decimal.Decimal) error {
	if status != "" && !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", errors.ErrInvalidInput, status)
	}
	if lat != nil && lat.Abs().GreaterThan(maxLatitude) {
		return fmt.Errorf("%w: latitude out of range", errors.ErrInvalidInput)
	}
	if lng != nil && lng.Abs().GreaterThan(maxLongitude) {
		return fmt.Errorf("%w: longitude out of range", errors.ErrInvalidInput)
	}
	return nil
}
