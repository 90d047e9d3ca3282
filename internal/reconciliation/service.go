package reconciliation

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ksred/recon-api/pkg/response"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AlertSink receives the outcome of a reconciliation run. Dispatch must be
// best effort: delivery problems are the sink's to log, never the run's to
// fail on.
type AlertSink interface {
	Dispatch(alerts []Alert, stats SummaryStats)
	PrintSummary(stats SummaryStats)
}

// Service runs reconciliation passes over the joined dataset.
type Service struct {
	db     *Database
	engine *ThresholdEngine
	sink   AlertSink
}

// NewService creates a new reconciliation service with the given database
// connection, alert threshold, and alert sink.
func NewService(gormDB *gorm.DB, threshold decimal.Decimal, sink AlertSink) *Service {
	return &Service{
		db:     NewDatabase(gormDB),
		engine: NewThresholdEngine(threshold),
		sink:   sink,
	}
}

// Report fetches, classifies, and thresholds the joined dataset without
// dispatching alerts. A query failure or a defective joined row fails the
// pass with no partial state.
func (s *Service) Report() (*Report, error) {
	reportRows, err := s.db.FetchReportRows()
	if err != nil {
		return nil, fmt.Errorf("reconciliation query failed: %w", err)
	}

	rows, err := ClassifyAll(reportRows)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	alerts, stats := s.engine.Evaluate(rows)
	return &Report{Rows: rows, Alerts: alerts, Summary: stats}, nil
}

// Run executes one full reconciliation pass and dispatches the outcome.
// Alert delivery is best effort and never fails the run.
func (s *Service) Run() (*Report, error) {
	logger := log.With().
		Str("service", "reconciliation").
		Str("threshold", s.engine.Threshold().String()).
		Logger()

	logger.Info().Msg("starting reconciliation analysis")

	report, err := s.Report()
	if err != nil {
		logger.Error().Err(err).Msg("reconciliation run failed")
		return nil, err
	}

	logger.Info().
		Int("total_records", report.Summary.TotalRecords).
		Int("matched", report.Summary.Matched).
		Int("discrepancies", report.Summary.Discrepancies).
		Int("missing_in_bank", report.Summary.MissingInBank).
		Int("missing_in_exchange", report.Summary.MissingInExchange).
		Int("critical_alerts", report.Summary.CriticalAlerts).
		Str("total_discrepancy_amount", report.Summary.TotalDiscrepancyAmount.String()).
		Msg("reconciliation analysis complete")

	s.sink.Dispatch(report.Alerts, report.Summary)
	s.sink.PrintSummary(report.Summary)

	return report, nil
}

// GinHandlers contains HTTP handlers for reconciliation endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for reconciliation endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ReportHandler handles GET requests for the full classified dataset with
// summary statistics. It does not dispatch alerts.
func (h *GinHandlers) ReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.service.Report()
		response.Handle(c, report, err)
	}
}

// AlertsHandler handles GET requests for the critical-alert subset only.
func (h *GinHandlers) AlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.service.Report()
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{
			"alerts":  report.Alerts,
			"summary": report.Summary,
		})
	}
}
