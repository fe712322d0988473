// Package mocks provides testify mocks for the files use case.
package mocks

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	authDomain "github.com/allisson/filevault/internal/auth/domain"
	filesDomain "github.com/allisson/filevault/internal/files/domain"
	filesUseCase "github.com/allisson/filevault/internal/files/usecase"
)

// MockFileUseCase is a mock implementation of usecase.FileUseCase.
type MockFileUseCase struct {
	mock.Mock
}

// NewMockFileUseCase creates a MockFileUseCase whose expectations are asserted on cleanup.
func NewMockFileUseCase(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockFileUseCase {
	m := &MockFileUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func fileOrNil(v any) *filesDomain.StoredFile {
	if v == nil {
		return nil
	}
	return v.(*filesDomain.StoredFile)
}

func (m *MockFileUseCase) Upload(
	ctx context.Context,
	principal *authDomain.Principal,
	input filesUseCase.UploadInput,
) (*filesDomain.StoredFile, error) {
	args := m.Called(ctx, principal, input)
	return fileOrNil(args.Get(0)), args.Error(1)
}

func (m *MockFileUseCase) List(
	ctx context.Context,
	principal *authDomain.Principal,
	offset, limit int,
) ([]*filesDomain.StoredFile, error) {
	args := m.Called(ctx, principal, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*filesDomain.StoredFile), args.Error(1)
}

func (m *MockFileUseCase) Get(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (*filesDomain.StoredFile, error) {
	args := m.Called(ctx, principal, id)
	return fileOrNil(args.Get(0)), args.Error(1)
}

func (m *MockFileUseCase) Open(
	ctx context.Context,
	principal *authDomain.Principal,
	id uuid.UUID,
) (io.ReadCloser, *filesDomain.StoredFile, error) {
	args := m.Called(ctx, principal, id)
	var rc io.ReadCloser
	if args.Get(0) != nil {
		rc = args.Get(0).(io.ReadCloser)
	}
	return rc, fileOrNil(args.Get(1)), args.Error(2)
}

func (m *MockFileUseCase) Verify(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, principal, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileUseCase) Delete(ctx context.Context, principal *authDomain.Principal, id uuid.UUID) error {
	args := m.Called(ctx, principal, id)
	return args.Error(0)
}

func (m *MockFileUseCase) Lookup(ctx context.Context, id uuid.UUID) (*filesDomain.StoredFile, error) {
	args := m.Called(ctx, id)
	return fileOrNil(args.Get(0)), args.Error(1)
}

func (m *MockFileUseCase) OpenObject(ctx context.Context, file *filesDomain.StoredFile) (io.ReadCloser, error) {
	args := m.Called(ctx, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockFileUseCase) VerifyObject(ctx context.Context, file *filesDomain.StoredFile) (bool, error) {
	args := m.Called(ctx, file)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileUseCase) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFileUseCase) RemoveObject(ctx context.Context, file *filesDomain.StoredFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockFileUseCase) ListExpired(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*filesDomain.StoredFile, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*filesDomain.StoredFile), args.Error(1)
}

func (m *MockFileUseCase) Expire(ctx context.Context, file *filesDomain.StoredFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}
