package service

import (
	"context"
	"errors"

	"restock/internal/apierror"
	"restock/internal/dto"
	"restock/internal/model"
	"restock/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VendorService interface {
	List(ctx context.Context, includeInactive bool) ([]dto.VendorResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.VendorResponse, error)
	Upsert(ctx context.Context, req dto.UpsertVendorRequest) (*dto.VendorResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type vendorService struct {
	vendors repository.VendorRepository
}

func NewVendorService(vendors repository.VendorRepository) VendorService {
	return &vendorService{vendors: vendors}
}

func (s *vendorService) List(ctx context.Context, includeInactive bool) ([]dto.VendorResponse, error) {
	vendors, err := s.vendors.List(ctx, includeInactive)
	if err != nil {
		return nil, apierror.Database("list vendors", err)
	}
	out := make([]dto.VendorResponse, 0, len(vendors))
	for i := range vendors {
		out = append(out, toVendorResponse(&vendors[i]))
	}
	return out, nil
}

func (s *vendorService) Get(ctx context.Context, id uuid.UUID) (*dto.VendorResponse, error) {
	v, err := s.vendors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("vendor %s not found", id)
		}
		return nil, apierror.Database("load vendor", err)
	}
	resp := toVendorResponse(v)
	return &resp, nil
}

func (s *vendorService) Upsert(ctx context.Context, req dto.UpsertVendorRequest) (*dto.VendorResponse, error) {
	v := &model.Vendor{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		LeadTimeDays:   req.LeadTimeDays,
		MinOrderAmount: req.MinOrderAmount,
		Active:         true,
	}
	if err := s.vendors.UpsertByName(ctx, v); err != nil {
		return nil, apierror.Database("upsert vendor", err)
	}
	return s.Get(ctx, v.ID)
}

func (s *vendorService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.vendors.Deactivate(ctx, id); err != nil {
		return apierror.Database("deactivate vendor", err)
	}
	return nil
}

func toVendorResponse(v *model.Vendor) dto.VendorResponse {
	return dto.VendorResponse{
		ID:             v.ID.String(),
		Name:           v.Name,
		Email:          v.Email,
		Phone:          v.Phone,
		LeadTimeDays:   v.LeadTimeDays,
		MinOrderAmount: v.MinOrderAmount,
		Active:         v.Active,
	}
}
