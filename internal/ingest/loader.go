package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/recon-api/internal/config"
	"github.com/ksred/recon-api/internal/types"
	"github.com/ksred/recon-api/pkg/response"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// sourceColumns are the required header names of the clearing feed file.
var sourceColumns = []string{
	"trade_date_aest",
	"trade_number",
	"fill_sequence",
	"product",
	"market",
	"direction",
	"quantity",
	"price",
	"counterparty",
	"fee",
}

// Service handles chunked ingestion of the clearing feed into the staging
// store.
type Service struct {
	db          *Database
	transformer *Transformer
	chunkSize   int
}

// NewService creates a new ingestion service with the given database
// connection and loader configuration.
func NewService(gormDB *gorm.DB, cfg config.IngestConfig) (*Service, error) {
	transformer, err := NewTransformer(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 1000
	}

	return &Service{
		db:          NewDatabase(gormDB),
		transformer: transformer,
		chunkSize:   chunkSize,
	}, nil
}

// Run ingests the source file in fixed-size batches. Row-level failures are
// collected and skipped; a persistence failure aborts the run with the
// current batch rolled back and no further batches attempted. Cancellation
// is honored between batches only, so an in-flight batch always lands whole
// or not at all.
func (s *Service) Run(ctx context.Context, filePath string) (*Result, error) {
	result := &Result{RunID: uuid.New().String()}

	logger := log.With().
		Str("service", "ingest").
		Str("run_id", result.RunID).
		Str("file", filePath).
		Logger()

	logger.Info().Int("chunk_size", s.chunkSize).Msg("starting ingest run")

	file, err := os.Open(filePath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open source file")
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = ';'

	header, err := reader.Read()
	if err != nil {
		logger.Error().Err(err).Msg("failed to read header row")
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		logger.Error().Err(err).Msg("unexpected file layout")
		return nil, err
	}

	line := 1 // header consumed
	for batchNum := 1; ; batchNum++ {
		// Cooperative cancellation, checked only at batch boundaries.
		if err := ctx.Err(); err != nil {
			logger.Info().Int("batches_applied", result.Batches).Msg("ingest cancelled")
			return result, err
		}

		batch, eof, err := s.readBatch(reader, columns, &line, result, logger)
		if err != nil {
			logger.Error().Err(err).Msg("source read failure, aborting run")
			return nil, err
		}

		if len(batch) > 0 {
			logger.Debug().
				Int("batch", batchNum).
				Int("rows", len(batch)).
				Msg("applying batch")

			if err := s.db.UpsertTradeBatch(batch); err != nil {
				logger.Error().Err(err).Int("batch", batchNum).Msg("persistence failure, aborting run")
				return nil, fmt.Errorf("persistence failure on batch %d: %w", batchNum, err)
			}
			result.Batches++
			result.RowsPersisted += len(batch)
		}

		if eof {
			break
		}
	}

	logger.Info().
		Int("rows_read", result.RowsRead).
		Int("rows_persisted", result.RowsPersisted).
		Int("incomplete", result.Incomplete).
		Int("row_failures", len(result.Failures)).
		Int("batches", result.Batches).
		Msg("ingest run complete")

	return result, nil
}

// readBatch reads and transforms up to chunkSize rows. The returned flag
// reports end of file.
func (s *Service) readBatch(reader *csv.Reader, columns map[string]int, line *int, result *Result, logger zerolog.Logger) ([]*types.TradeRecord, bool, error) {
	batch := make([]*types.TradeRecord, 0, s.chunkSize)

	for len(batch) < s.chunkSize {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return batch, true, nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				// Not a malformed line but the file itself failing to
				// read; skipping cannot recover from that.
				return nil, false, fmt.Errorf("failed to read source file: %w", err)
			}

			// Malformed CSV line (bad quoting, wrong field count): a
			// row-level failure, not a fatal one. The reader has already
			// advanced past the line.
			*line++
			result.RowsRead++
			result.Failures = append(result.Failures, RowFailure{
				Line:   *line,
				Reason: err.Error(),
			})
			logger.Error().Err(err).Int("line", *line).Msg("unreadable row skipped")
			continue
		}
		*line++

		result.RowsRead++
		raw := rawFromRow(row, columns)
		key := fmt.Sprintf("%s-%s", raw.TradeNumber, raw.FillSequence)

		record, err := s.transformer.Transform(raw)
		if err != nil {
			result.Failures = append(result.Failures, RowFailure{
				Line:   *line,
				Key:    key,
				Reason: err.Error(),
			})
			logger.Error().Err(err).Int("line", *line).Str("key", key).Msg("row transform failed, skipped")
			continue
		}

		if !record.IsComplete {
			result.Incomplete++
			logger.Warn().
				Str("key", record.Key()).
				Msg("incomplete trade missing price or quantity, persisting flagged")
		}

		batch = append(batch, record)
	}

	return batch, false, nil
}

// mapColumns resolves the header row into column positions, requiring every
// source column to be present.
func mapColumns(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[name] = i
	}

	for _, required := range sourceColumns {
		if _, ok := positions[required]; !ok {
			return nil, fmt.Errorf("source file missing column %q", required)
		}
	}
	return positions, nil
}

func rawFromRow(row []string, columns map[string]int) RawTradeRecord {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	return RawTradeRecord{
		TradeDateLocal: field("trade_date_aest"),
		TradeNumber:    field("trade_number"),
		FillSequence:   field("fill_sequence"),
		Product:        field("product"),
		Market:         field("market"),
		Direction:      field("direction"),
		Quantity:       field("quantity"),
		Price:          field("price"),
		Counterparty:   field("counterparty"),
		Fee:            field("fee"),
	}
}

// GinHandlers contains HTTP handlers for ingestion endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for ingestion endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// IngestRequest is the body of an internal ingest trigger.
type IngestRequest struct {
	FilePath string `json:"file_path" binding:"required"`
}

// IngestHandler handles POST requests to ingest a server-side feed file.
// Requires internal authentication.
func (h *GinHandlers) IngestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		result, err := h.service.Run(c.Request.Context(), req.FilePath)
		response.Handle(c, result, err)
	}
}
