package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	testingutil "github.com/amirphl/Kusanagi/testing"
)

func TestClickExportFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	flow := NewClickExportFlow(env.linkRepo, env.clickRepo, zap.NewNop())

	link, err := env.fixtures.CreateTestShortLink(testingutil.WithCode("export1"))
	require.NoError(t, err)
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	_, err = env.fixtures.CreateTestClick(link, "5.5.5.5", at)
	require.NoError(t, err)
	_, err = env.fixtures.CreateTestClick(link, "6.6.6.6", at.Add(time.Hour))
	require.NoError(t, err)

	t.Run("csv", func(t *testing.T) {
		name, content, err := flow.ExportClicks(ctx, link.Code, "")
		require.NoError(t, err)
		assert.Equal(t, "clicks_export1.csv", name)

		records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, clickExportHeader, records[0])
		assert.Equal(t, "export1", records[1][1])
		assert.Equal(t, "2026-05-04T10:00:00Z", records[1][2])
		assert.Equal(t, "5.5.5.5", records[1][3])
		assert.Equal(t, "6.6.6.6", records[2][3])
	})

	t.Run("xlsx", func(t *testing.T) {
		name, content, err := flow.ExportClicks(ctx, link.Code, "XLSX")
		require.NoError(t, err)
		assert.Equal(t, "clicks_export1.xlsx", name)

		xl, err := excelize.OpenReader(bytes.NewReader(content))
		require.NoError(t, err)
		defer func() { _ = xl.Close() }()

		assert.Equal(t, []string{"export1", "export1_daily"}, xl.GetSheetList())

		rows, err := xl.GetRows("export1")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "ip", rows[0][3])
		assert.Equal(t, "5.5.5.5", rows[1][3])

		daily, err := xl.GetRows("export1_daily")
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(daily), 2)
		assert.Equal(t, []string{"2026-05-04", "2", "2"}, daily[1][:3])
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, _, err := flow.ExportClicks(ctx, link.Code, "pdf")
		assert.True(t, IsUnsupportedExportFormat(err))
		assert.True(t, IsValidationError(err))
	})

	t.Run("unknown code", func(t *testing.T) {
		_, _, err := flow.ExportClicks(ctx, "missing", "csv")
		assert.True(t, IsShortLinkNotFound(err))
	})
}

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc", "abc"},
		{"a/b:c", "a_b_c"},
		{"", "Sheet"},
		{"abcdefghijklmnopqrstuvwxyz0123456789", "abcdefghijklmnopqrstuvwxyz01234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeSheetName(tt.in))
	}
}
