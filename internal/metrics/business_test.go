package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

// assertSeries matches a sample line, tolerating the scope labels the OTel
// exporter adds.
func assertSeries(t *testing.T, output, name, labels, value string) {
	t.Helper()
	assert.Regexp(t, name+`\{[^}]*`+labels+`[^}]*\} `+value, output)
}

func TestBusinessMetrics(t *testing.T) {
	provider, err := NewProvider("filevault_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "filevault_test")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "vault", "vault_gate", StatusSuccess)
	bm.RecordOperation(ctx, "vault", "vault_gate", "denied")
	bm.RecordOperation(ctx, "vault", "vault_gate", "denied")
	bm.RecordOperation(ctx, "files", "file_upload", StatusSuccess)
	bm.RecordOperation(ctx, "quota", "overshoot", StatusError)
	bm.RecordDuration(ctx, "files", "file_upload", 40*time.Millisecond, StatusSuccess)
	bm.RecordDuration(ctx, "files", "file_upload", 60*time.Millisecond, StatusSuccess)

	output := scrape(t, provider)

	assertSeries(t, output, `filevault_test_operations_total`,
		`domain="vault".*operation="vault_gate".*status="denied"`, `2`)
	assertSeries(t, output, `filevault_test_operations_total`,
		`domain="vault".*operation="vault_gate".*status="success"`, `1`)
	assertSeries(t, output, `filevault_test_operations_total`,
		`domain="quota".*operation="overshoot".*status="error"`, `1`)
	assertSeries(t, output, `filevault_test_operation_duration_seconds_count`,
		`domain="files".*operation="file_upload".*status="success"`, `2`)
}

func TestNoOpBusinessMetrics(t *testing.T) {
	bm := NewNoOpBusinessMetrics()
	assert.IsType(t, NoOpBusinessMetrics{}, bm)

	assert.NotPanics(t, func() {
		bm.RecordOperation(context.Background(), "files", "file_upload", StatusSuccess)
		bm.RecordDuration(context.Background(), "files", "file_upload", time.Second, StatusError)
	})
}
