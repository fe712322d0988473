// Package mocks provides testify mocks for the vault use case.
package mocks

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
	vaultDomain "github.com/allisson/filevault/internal/vault/domain"
	vaultUseCase "github.com/allisson/filevault/internal/vault/usecase"
)

// MockVaultUseCase is a mock implementation of usecase.VaultUseCase.
type MockVaultUseCase struct {
	mock.Mock
}

// NewMockVaultUseCase creates a MockVaultUseCase whose expectations are asserted on cleanup.
func NewMockVaultUseCase(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockVaultUseCase {
	m := &MockVaultUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func membershipOrNil(v any) *vaultDomain.Membership {
	if v == nil {
		return nil
	}
	return v.(*vaultDomain.Membership)
}

func (m *MockVaultUseCase) Promote(
	ctx context.Context,
	principal *authDomain.Principal,
	input vaultUseCase.PromoteInput,
) (*vaultDomain.Membership, error) {
	args := m.Called(ctx, principal, input)
	return membershipOrNil(args.Get(0)), args.Error(1)
}

func (m *MockVaultUseCase) Gate(
	ctx context.Context,
	principal *authDomain.Principal,
	membershipID uuid.UUID,
	candidatePin string,
) (*vaultDomain.Capability, error) {
	args := m.Called(ctx, principal, membershipID, candidatePin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Capability), args.Error(1)
}

func (m *MockVaultUseCase) Remove(ctx context.Context, principal *authDomain.Principal, membershipID uuid.UUID) error {
	args := m.Called(ctx, principal, membershipID)
	return args.Error(0)
}

func (m *MockVaultUseCase) Get(
	ctx context.Context,
	principal *authDomain.Principal,
	membershipID uuid.UUID,
) (*vaultDomain.Membership, error) {
	args := m.Called(ctx, principal, membershipID)
	return membershipOrNil(args.Get(0)), args.Error(1)
}

func (m *MockVaultUseCase) OpenCapability(
	ctx context.Context,
	principal *authDomain.Principal,
	token string,
) (io.ReadCloser, *filesDomain.StoredFile, error) {
	args := m.Called(ctx, principal, token)
	var rc io.ReadCloser
	if v := args.Get(0); v != nil {
		rc = v.(io.ReadCloser)
	}
	var file *filesDomain.StoredFile
	if v := args.Get(1); v != nil {
		file = v.(*filesDomain.StoredFile)
	}
	return rc, file, args.Error(2)
}

func (m *MockVaultUseCase) Destroy(ctx context.Context, membership *vaultDomain.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockVaultUseCase) GetByFileID(ctx context.Context, fileID uuid.UUID) (*vaultDomain.Membership, error) {
	args := m.Called(ctx, fileID)
	return membershipOrNil(args.Get(0)), args.Error(1)
}

func (m *MockVaultUseCase) ListLapsed(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*vaultDomain.Membership, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*vaultDomain.Membership), args.Error(1)
}

var _ vaultUseCase.VaultUseCase = (*MockVaultUseCase)(nil)
