package kafka

import (
	"testing"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAuditEventFlattensTypedPayload(t *testing.T) {
	templateID := int64(4)
	runID := "run-1"
	log := domain.NewImportLog(&templateID, &runID, domain.LogPrepareReport, map[string]any{
		"seedUrls": []string{"https://a.test/x"},
		"diffs":    map[string]int{"add": 2},
		"report":   domain.PrepareReport{Staged: 3},
	}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	log.ID = 11

	data, err := AuditEncoder{}.EncodeAuditEvent(log)
	require.NoError(t, err)

	got, err := DecodeAuditEvent(data)
	require.NoError(t, err)

	assert.Equal(t, "prepare:report", got["type"])
	assert.Equal(t, "run-1", got["runId"])
	assert.Equal(t, float64(4), got["templateId"])
	assert.Equal(t, float64(11), got["id"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["at"])

	payload := got["payload"].(map[string]any)
	assert.Equal(t, []any{"https://a.test/x"}, payload["seedUrls"])
	assert.Equal(t, map[string]any{"add": float64(2)}, payload["diffs"])
	assert.Contains(t, payload, "report")
}
