package repository

import (
	"context"
	"errors"
	"strings"

	"restock/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VendorRepository is the data-access contract for vendors. Name matching is
// case-insensitive; vendors are deactivated, never deleted.
type VendorRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	FindByName(ctx context.Context, name string) (*model.Vendor, error)
	List(ctx context.Context, includeInactive bool) ([]model.Vendor, error)
	Create(ctx context.Context, v *model.Vendor) error
	Update(ctx context.Context, v *model.Vendor) error
	Deactivate(ctx context.Context, id uuid.UUID) error

	// UpsertByName reconciles an external vendor record: matches on name
	// (case-insensitive), updates contact/lead-time fields when found,
	// creates otherwise. v.ID is populated either way.
	UpsertByName(ctx context.Context, v *model.Vendor) error
}

type vendorRepo struct{ db *gorm.DB }

func NewVendorRepository(db *gorm.DB) VendorRepository { return &vendorRepo{db: db} }

func (r *vendorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	var v model.Vendor
	err := r.db.WithContext(ctx).First(&v, id).Error
	return &v, err
}

func (r *vendorRepo) FindByName(ctx context.Context, name string) (*model.Vendor, error) {
	var v model.Vendor
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).First(&v).Error
	return &v, err
}

func (r *vendorRepo) List(ctx context.Context, includeInactive bool) ([]model.Vendor, error) {
	var vendors []model.Vendor
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("active = true")
	}
	err := q.Order("name ASC").Find(&vendors).Error
	return vendors, err
}

func (r *vendorRepo) Create(ctx context.Context, v *model.Vendor) error {
	v.Name = strings.TrimSpace(v.Name)
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *vendorRepo) Update(ctx context.Context, v *model.Vendor) error {
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *vendorRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Vendor{}).
		Where("id = ?", id).Update("active", false).Error
}

func (r *vendorRepo) UpsertByName(ctx context.Context, v *model.Vendor) error {
	existing, err := r.FindByName(ctx, v.Name)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return r.Create(ctx, v)
	}

	updates := map[string]interface{}{}
	if v.Email != nil {
		updates["email"] = *v.Email
	}
	if v.Phone != nil {
		updates["phone"] = *v.Phone
	}
	if v.LeadTimeDays > 0 {
		updates["lead_time_days"] = v.LeadTimeDays
	}
	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
			return err
		}
	}
	v.ID = existing.ID
	return nil
}
