package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/filevault/internal/sweeper"
)

type MockSweepRunner struct {
	mock.Mock
}

func (m *MockSweepRunner) SweepOnce(ctx context.Context) (sweeper.SweepResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(sweeper.SweepResult), args.Error(1)
}

func TestRunSweep(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("text", func(t *testing.T) {
		runner := &MockSweepRunner{}
		runner.On("SweepOnce", ctx).Return(sweeper.SweepResult{FilesExpired: 3, MembershipsDestroyed: 1}, nil)

		var out bytes.Buffer
		require.NoError(t, RunSweep(ctx, runner, logger, &out, "text"))
		require.Contains(t, out.String(), "Files expired:          3")
		require.Contains(t, out.String(), "Memberships destroyed:  1")
		runner.AssertExpectations(t)
	})

	t.Run("json", func(t *testing.T) {
		runner := &MockSweepRunner{}
		runner.On("SweepOnce", ctx).Return(sweeper.SweepResult{FilesExpired: 2}, nil)

		var out bytes.Buffer
		require.NoError(t, RunSweep(ctx, runner, logger, &out, "json"))

		var body map[string]int
		require.NoError(t, json.Unmarshal(out.Bytes(), &body))
		require.Equal(t, 2, body["files_expired"])
		require.Equal(t, 0, body["failures"])
	})

	t.Run("failures-exit-with-error", func(t *testing.T) {
		runner := &MockSweepRunner{}
		runner.On("SweepOnce", ctx).Return(sweeper.SweepResult{FilesExpired: 1, Failures: 2}, nil)

		err := RunSweep(ctx, runner, logger, io.Discard, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "2 failure(s)")
	})

	t.Run("sweep-error", func(t *testing.T) {
		runner := &MockSweepRunner{}
		runner.On("SweepOnce", ctx).Return(sweeper.SweepResult{}, errors.New("database down"))

		err := RunSweep(ctx, runner, logger, io.Discard, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to sweep")
	})
}
