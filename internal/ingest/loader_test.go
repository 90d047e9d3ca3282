package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ksred/recon-api/internal/config"
	"github.com/ksred/recon-api/internal/database"
	"github.com/ksred/recon-api/internal/ingest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const feedHeader = "trade_date_aest;trade_number;fill_sequence;product;market;direction;quantity;price;counterparty;fee"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newLoader(t *testing.T, db *gorm.DB, chunkSize int) *ingest.Service {
	t.Helper()
	service, err := ingest.NewService(db, config.IngestConfig{
		ChunkSize: chunkSize,
		Timezone:  "Australia/Sydney",
	})
	require.NoError(t, err)
	return service
}

func writeFeed(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trades.csv")
	content := feedHeader + "\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_IngestsAndFlagsCompleteness(t *testing.T) {
	db := newTestDB(t)
	loader := newLoader(t, db, 1000)

	// Scenario: T001 complete, T002 missing price, T003 complete
	path := writeFeed(t,
		"14/01/2025;T001;1;WTI-CRUDE;ICE;BUY;5;1,76;Macquarie;0,1",
		"14/01/2025;T002;1;NATGAS-HH;CME;SELL;10;;Glencore;0,1",
		"14/01/2025;T003;1;BRENT-CRUDE;ICE;BUY;4;2,83;Vitol;0,1",
	)

	result, err := loader.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowsRead)
	assert.Equal(t, 3, result.RowsPersisted)
	assert.Equal(t, 1, result.Incomplete)
	assert.Empty(t, result.Failures)

	store := ingest.NewDatabase(db)

	t001, err := store.GetTradeRecord("T001", 1)
	require.NoError(t, err)
	assert.True(t, t001.IsComplete)
	require.True(t, t001.TotalValue.Valid)
	assert.True(t, t001.TotalValue.Decimal.Equal(decimal.RequireFromString("8.80")))

	t002, err := store.GetTradeRecord("T002", 1)
	require.NoError(t, err)
	assert.False(t, t002.IsComplete)
	assert.False(t, t002.TotalValue.Valid)
}

func TestRun_Idempotent(t *testing.T) {
	db := newTestDB(t)
	loader := newLoader(t, db, 1000)

	path := writeFeed(t,
		"14/01/2025;T001;1;WTI-CRUDE;ICE;BUY;5;1,76;Macquarie;0,1",
		"14/01/2025;T001;2;WTI-CRUDE;ICE;BUY;3;1,80;Macquarie;0,1",
	)

	_, err := loader.Run(context.Background(), path)
	require.NoError(t, err)
	_, err = loader.Run(context.Background(), path)
	require.NoError(t, err)

	store := ingest.NewDatabase(db)
	count, err := store.CountTradeRecords()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "re-running an unchanged file must not duplicate keys")

	record, err := store.GetTradeRecord("T001", 1)
	require.NoError(t, err)
	assert.True(t, record.TotalValue.Decimal.Equal(decimal.RequireFromString("8.80")))
}

func TestRun_UpsertConvergesToNewValues(t *testing.T) {
	db := newTestDB(t)
	loader := newLoader(t, db, 1000)

	first := writeFeed(t, "14/01/2025;T001;1;WTI-CRUDE;ICE;BUY;5;1,76;Macquarie;0,1")
	_, err := loader.Run(context.Background(), first)
	require.NoError(t, err)

	// Same key, updated price: derived fields converge, identity untouched
	second := writeFeed(t, "14/01/2025;T001;1;WTI-CRUDE;ICE;BUY;5;2,00;Macquarie;0,1")
	_, err = loader.Run(context.Background(), second)
	require.NoError(t, err)

	store := ingest.NewDatabase(db)
	count, err := store.CountTradeRecords()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	record, err := store.GetTradeRecord("T001", 1)
	require.NoError(t, err)
	assert.True(t, record.TotalValue.Decimal.Equal(decimal.RequireFromString("10.00")))
}

func TestRun_RowFailuresAreSkippedNotFatal(t *testing.T) {
	db := newTestDB(t)
	loader := newLoader(t, db, 1000)

	path := writeFeed(t,
		"14/01/2025;T001;1;WTI-CRUDE;ICE;BUY;5;1,76;Macquarie;0,1",
		"14/01/2025;T002;1;NATGAS-HH;CME;SELL;10;garbage;Glencore;0,1",
		"not-a-date;T003;1;BRENT-CRUDE;ICE;BUY;4;2,83;Vitol;0,1",
	)

	result, err := loader.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowsRead)
	assert.Equal(t, 1, result.RowsPersisted)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "T002-1", result.Failures[0].Key)

	store := ingest.NewDatabase(db)
	count, err := store.CountTradeRecords()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRun_MalformedLineIsRowFailureNotFatal(t *testing.T) {
	db := newTestDB(t)
	loader := newLoader(t, db, 1000)

	// The second row carries a bare quote, which the CSV layer rejects
	// while still advancing past the line
	path := writeFeed(t,
		"14/01/2025;T001;1;WTI-CRUDE;ICE;BUY;5;1,76;Macquarie;0,1",
		`14/01/2025;T0"02;1;NATGAS-HH;CME;SELL;10;2,00;Glencore;0,1`,
		"14/01/2025;T003;1;BRENT-CRUDE;ICE;BUY;4;2,83;Vitol;0,1",
	)

	result, err := loader.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, result.RowsPersisted)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 3, result.Failures[0].Line)

	store := ingest.NewDatabase(db)
	count, err := store.CountTradeRecords()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRun_MidBatchFailureLeavesNoPartialBatch(t *testing.T) {
	db := newTestDB(t)
	loader := newLoader(t, db, 2)

	// Stand-in for a storage-side constraint the upsert's conflict clause
	// does not cover: reject one specific trade number at insert time.
	require.NoError(t, db.Exec(`
		CREATE TRIGGER trade_records_reject BEFORE INSERT ON trade_records
		WHEN NEW.trade_number = 'T900'
		BEGIN SELECT RAISE(ABORT, 'rejected by storage'); END
	`).Error)

	// Batch one is clean; batch two pairs a good row with the rejected one
	path := writeFeed(t,
		"14/01/2025;T001;1;WTI-CRUDE;ICE;BUY;5;1,00;Macquarie;0,1",
		"14/01/2025;T002;1;WTI-CRUDE;ICE;BUY;5;1,00;Macquarie;0,1",
		"14/01/2025;T003;1;WTI-CRUDE;ICE;BUY;5;1,00;Macquarie;0,1",
		"14/01/2025;T900;1;WTI-CRUDE;ICE;BUY;5;1,00;Macquarie;0,1",
	)

	_, err := loader.Run(context.Background(), path)
	require.Error(t, err, "a persistence failure is fatal to the run")

	store := ingest.NewDatabase(db)
	count, err := store.CountTradeRecords()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "earlier batches stay applied, the failing batch lands empty")

	_, err = store.GetTradeRecord("T003", 1)
	assert.Error(t, err, "rows preceding the failure within the batch roll back with it")
}

func TestRun_ChunkedBatches(t *testing.T) {
	db := newTestDB(t)
	loader := newLoader(t, db, 2)

	path := writeFeed(t,
		"14/01/2025;T001;1;WTI-CRUDE;ICE;BUY;5;1,00;Macquarie;0,1",
		"14/01/2025;T002;1;WTI-CRUDE;ICE;BUY;5;1,00;Macquarie;0,1",
		"14/01/2025;T003;1;WTI-CRUDE;ICE;BUY;5;1,00;Macquarie;0,1",
		"14/01/2025;T004;1;WTI-CRUDE;ICE;BUY;5;1,00;Macquarie;0,1",
		"14/01/2025;T005;1;WTI-CRUDE;ICE;BUY;5;1,00;Macquarie;0,1",
	)

	result, err := loader.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 5, result.RowsPersisted)
	assert.Equal(t, 3, result.Batches)
}

func TestRun_MissingFileIsFatal(t *testing.T) {
	db := newTestDB(t)
	loader := newLoader(t, db, 1000)

	_, err := loader.Run(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestRun_CancelledBeforeFirstBatch(t *testing.T) {
	db := newTestDB(t)
	loader := newLoader(t, db, 1000)

	path := writeFeed(t, "14/01/2025;T001;1;WTI-CRUDE;ICE;BUY;5;1,76;Macquarie;0,1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Run(ctx, path)
	require.ErrorIs(t, err, context.Canceled)

	store := ingest.NewDatabase(db)
	count, err := store.CountTradeRecords()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
