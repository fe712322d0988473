// Package mocks provides testify mocks for the quota ledger.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	quotaDomain "github.com/allisson/filevault/internal/quota/domain"
	quotaUseCase "github.com/allisson/filevault/internal/quota/usecase"
)

// MockLedger is a mock implementation of usecase.Ledger.
type MockLedger struct {
	mock.Mock
}

// NewMockLedger creates a MockLedger whose expectations are asserted on cleanup.
func NewMockLedger(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLedger {
	m := &MockLedger{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockLedger) Reserve(ctx context.Context, principal *authDomain.Principal, size int64) error {
	args := m.Called(ctx, principal, size)
	return args.Error(0)
}

func (m *MockLedger) Release(ctx context.Context, ownerID uuid.UUID, size int64) error {
	args := m.Called(ctx, ownerID, size)
	return args.Error(0)
}

func (m *MockLedger) Summary(ctx context.Context, principal *authDomain.Principal) (*quotaDomain.Summary, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*quotaDomain.Summary), args.Error(1)
}

var _ quotaUseCase.Ledger = (*MockLedger)(nil)
