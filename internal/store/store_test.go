package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jackc/pgx/v5"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
)

// flexibleSQLMatcher builds a whitespace-insensitive regex from a SQL literal.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func findingColumns() []string {
	return []string{"id", "scan_id", "target", "framework", "vulnerability_name", "severity", "description", "evidence", "recommendation", "cwe", "observed_at"}
}

func sampleEnvelope(scanID string) *schemas.ResultEnvelope {
	result := schemas.EmptyResult("laravel")
	result.FilesScanned = 3

	return &schemas.ResultEnvelope{
		ScanID:    scanID,
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Result:    result,
		Findings: []schemas.Finding{
			{
				ID:                "finding-1",
				ScanID:            scanID,
				Target:            "app/routes.php:42",
				Framework:         "laravel",
				VulnerabilityName: "Host Header Poisoning (Open Redirect)",
				Severity:          schemas.SeverityHigh,
				Evidence:          json.RawMessage(`{"confidence":0.9}`),
				ObservedAt:        time.Now(),
			},
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("ping failure is propagated", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPersistEnvelope(t *testing.T) {
	ctx := context.Background()

	t.Run("persists scan record and findings without rollback errors", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		observedCore, observedLogs := observer.New(zapcore.ErrorLevel)
		mockPool.ExpectPing().WillReturnError(nil)
		store, err := New(ctx, mockPool, zap.New(observedCore))
		require.NoError(t, err)

		scanID := uuid.NewString()
		envelope := sampleEnvelope(scanID)

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertScan)).
			WithArgs(scanID, envelope.Timestamp.UTC(), "laravel", 3, 0, 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCopyFrom(pgx.Identifier{"findings"}, findingColumns()).
			WillReturnResult(1)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.PersistEnvelope(ctx, envelope))
		assert.NoError(t, mockPool.ExpectationsWereMet())
		assert.Empty(t, observedLogs.All(), "no errors should be logged on a clean commit")
	})

	t.Run("empty evidence is stored as an empty object", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		store, err := New(ctx, mockPool, zap.NewNop())
		require.NoError(t, err)

		scanID := uuid.NewString()
		envelope := &schemas.ResultEnvelope{
			ScanID: scanID,
			Findings: []schemas.Finding{
				{ID: "f-null", VulnerabilityName: "Test", Evidence: json.RawMessage("null"), ObservedAt: time.Now()},
			},
		}

		mockPool.ExpectBegin()
		mockPool.ExpectCopyFrom(pgx.Identifier{"findings"}, findingColumns()).
			WillReturnResult(1)
		mockPool.ExpectCommit()
		mockPool.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		require.NoError(t, store.PersistEnvelope(ctx, envelope))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("begin failure is propagated", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		store, err := New(ctx, mockPool, zap.NewNop())
		require.NoError(t, err)

		beginErr := errors.New("cannot begin tx")
		mockPool.ExpectBegin().WillReturnError(beginErr)

		err = store.PersistEnvelope(ctx, &schemas.ResultEnvelope{})
		require.Error(t, err)
		assert.ErrorIs(t, err, beginErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("copy failure rolls back", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		store, err := New(ctx, mockPool, zap.NewNop())
		require.NoError(t, err)

		copyErr := errors.New("copy from failed")
		envelope := &schemas.ResultEnvelope{
			Findings: []schemas.Finding{
				{ID: "f-1", VulnerabilityName: "Test", Evidence: json.RawMessage("{}"), ObservedAt: time.Now()},
			},
		}

		mockPool.ExpectBegin()
		mockPool.ExpectCopyFrom(pgx.Identifier{"findings"}, findingColumns()).
			WillReturnError(copyErr)
		mockPool.ExpectRollback()

		err = store.PersistEnvelope(ctx, envelope)
		require.Error(t, err)
		assert.ErrorIs(t, err, copyErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("scan insert failure rolls back", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		store, err := New(ctx, mockPool, zap.NewNop())
		require.NoError(t, err)

		insertErr := errors.New("insert failed")
		envelope := sampleEnvelope(uuid.NewString())

		mockPool.ExpectBegin()
		mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertScan)).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(insertErr)
		mockPool.ExpectRollback()

		err = store.PersistEnvelope(ctx, envelope)
		require.Error(t, err)
		assert.ErrorIs(t, err, insertErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestGetFindingsByScanID(t *testing.T) {
	ctx := context.Background()

	t.Run("retrieves findings", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		store, err := New(ctx, mockPool, zap.NewNop())
		require.NoError(t, err)

		sqlGetFindings := `
        SELECT id, observed_at, target, framework, vulnerability_name, severity, description, evidence, recommendation, cwe
        FROM findings
        WHERE scan_id = $1
        ORDER BY observed_at ASC;
        `
		scanID := uuid.NewString()
		now := time.Now().UTC()
		evidenceJSON := `{"confidence": 0.9}`

		columns := []string{"id", "observed_at", "target", "framework", "vulnerability_name", "severity", "description", "evidence", "recommendation", "cwe"}
		rows := pgxmock.NewRows(columns).
			AddRow("finding-123", now, "app/routes.php:42", "laravel", "Host Header Poisoning (Open Redirect)", "high", "desc", []byte(evidenceJSON), "reco", []string{"CWE-601"})

		mockPool.ExpectQuery(flexibleSQLMatcher(sqlGetFindings)).
			WithArgs(scanID).
			WillReturnRows(rows)

		findings, err := store.GetFindingsByScanID(ctx, scanID)
		require.NoError(t, err)
		require.Len(t, findings, 1)

		assert.Equal(t, "finding-123", findings[0].ID)
		assert.Equal(t, scanID, findings[0].ScanID)
		assert.Equal(t, schemas.SeverityHigh, findings[0].Severity)
		assert.JSONEq(t, evidenceJSON, string(findings[0].Evidence))
		assert.True(t, findings[0].ObservedAt.Equal(now))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("query failure is propagated", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectPing().WillReturnError(nil)
		store, err := New(ctx, mockPool, zap.NewNop())
		require.NoError(t, err)

		queryErr := errors.New("connection reset")
		mockPool.ExpectQuery("SELECT").WithArgs(pgxmock.AnyArg()).WillReturnError(queryErr)

		_, err = store.GetFindingsByScanID(ctx, uuid.NewString())
		require.Error(t, err)
		assert.ErrorIs(t, err, queryErr)
	})
}
