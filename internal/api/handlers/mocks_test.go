package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/MaclennanMah/MediQ/internal/application/services"
	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/repositories"
)

type MockFacilityService struct {
	mock.Mock
}

func (m *MockFacilityService) Create(ctx context.Context, in services.FacilityInput) (*entities.Facility, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func (m *MockFacilityService) Update(ctx context.Context, id string, patch services.FacilityPatch) (*entities.Facility, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func (m *MockFacilityService) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func (m *MockFacilityService) List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

func (m *MockFacilityService) FindNear(ctx context.Context, point entities.Location, maxDistanceMeters int) ([]*entities.Facility, error) {
	args := m.Called(ctx, point, maxDistanceMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) Record(ctx context.Context, in services.RecordInput) (*entities.Submission, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Submission), args.Error(1)
}

func (m *MockSubmissionService) List(ctx context.Context, kind *entities.ReporterKind, limit, offset int) ([]*entities.Submission, error) {
	args := m.Called(ctx, kind, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Submission), args.Error(1)
}

func (m *MockSubmissionService) Latest(ctx context.Context, facilityID string, kind entities.ReporterKind) (*entities.Submission, bool, error) {
	args := m.Called(ctx, facilityID, kind)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entities.Submission), args.Bool(1), args.Error(2)
}

func (m *MockSubmissionService) Recent(ctx context.Context, facilityID string, kind *entities.ReporterKind, limit int) ([]*entities.Submission, error) {
	args := m.Called(ctx, facilityID, kind, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Submission), args.Error(1)
}
