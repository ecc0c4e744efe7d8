package testutil

import (
	"context"

	"github.com/dimitrije/vesting-api/internal/models"
	"github.com/dimitrije/vesting-api/internal/vesting"
	"github.com/stretchr/testify/mock"
)

// MockGrantService mocks the GrantService
type MockGrantService struct {
	mock.Mock
}

func (m *MockGrantService) Create(ctx context.Context, caller string, req vesting.CreateRequest) (*vesting.GrantState, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vesting.GrantState), args.Error(1)
}

func (m *MockGrantService) Claim(ctx context.Context, caller string, req vesting.ClaimRequest) (*vesting.ClaimResult, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vesting.ClaimResult), args.Error(1)
}

func (m *MockGrantService) Get(ctx context.Context, address string) (*vesting.GrantState, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vesting.GrantState), args.Error(1)
}

func (m *MockGrantService) Preview(ctx context.Context, address string, at *int64) (*vesting.Preview, error) {
	args := m.Called(ctx, address, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vesting.Preview), args.Error(1)
}

func (m *MockGrantService) Claims(ctx context.Context, address string) ([]models.ClaimRecord, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ClaimRecord), args.Error(1)
}

func (m *MockGrantService) Account(ctx context.Context, address string) (*models.TokenAccount, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenAccount), args.Error(1)
}

func (m *MockGrantService) Mint(ctx context.Context, owner, asset string, amount uint64) (*models.TokenAccount, error) {
	args := m.Called(ctx, owner, asset, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenAccount), args.Error(1)
}

func (m *MockGrantService) Now() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}
