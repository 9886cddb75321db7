package repository

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
)

// SchoolFilter narrows a school listing. Empty fields do not filter.
type SchoolFilter struct {
	Search   string
	Province string
	Status   model.SchoolStatus
}

// SchoolRepository defines school persistence operations.
type SchoolRepository interface {
	Create(ctx context.Context, school *model.School) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.School, error)
	List(ctx context.Context, filter SchoolFilter) ([]model.School, error)
	Stats(ctx context.Context) (*model.SchoolStats, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type schoolRepository struct {
	db *gorm.DB
}

// NewSchoolRepository creates a new school repository.
func NewSchoolRepository(db *gorm.DB) SchoolRepository {
	return &schoolRepository{db: db}
}

func (r *schoolRepository) Create(ctx context.Context, school *model.School) error {
	return r.db.WithContext(ctx).Create(school).Error
}

func (r *schoolRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.School, error) {
	var school model.School
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&school).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrSchoolNotFound
		}
		return nil, err
	}
	return &school, nil
}

// List returns schools matching filter. Search matches a case-insensitive
// substring of name, province, district or palika.
func (r *schoolRepository) List(ctx context.Context, filter SchoolFilter) ([]model.School, error) {
	q := r.db.WithContext(ctx).Model(&model.School{})
	if filter.Province != "" {
		q = q.Where("province = ?", filter.Province)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		q = q.Where(
			"LOWER(name) LIKE ? ESCAPE '!' OR LOWER(province) LIKE ? ESCAPE '!' OR "+
				"LOWER(district) LIKE ? ESCAPE '!' OR LOWER(palika) LIKE ? ESCAPE '!'",
			pattern, pattern, pattern, pattern,
		)
	}

	var schools []model.School
	if err := q.Order("name").Find(&schools).Error; err != nil {
		return nil, err
	}
	return schools, nil
}

func (r *schoolRepository) Stats(ctx context.Context) (*model.SchoolStats, error) {
	var rows []struct {
		Status model.SchoolStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&model.School{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &model.SchoolStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case model.SchoolStatusOnline:
			stats.Online = row.Count
		case model.SchoolStatusOffline:
			stats.Offline = row.Count
		case model.SchoolStatusMaintenance:
			stats.Maintenance = row.Count
		}
	}
	return stats, nil
}

func (r *schoolRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&model.School{}).Where("id = ?", id).Updates(fields).Error
}

func (r *schoolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.School{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.ErrSchoolNotFound
	}
	return nil
}

// '!' escapes the same way in MySQL, PostgreSQL and SQLite.
var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
