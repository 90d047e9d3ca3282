package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ksred/recon-api/internal/types"
	"github.com/shopspring/decimal"
)

// sourceDateLayout is the calendar date format of the clearing feed.
const sourceDateLayout = "02/01/2006"

// Transformer validates and enriches a single raw trade record. It is
// stateless apart from the source time zone and safe for concurrent use.
type Transformer struct {
	loc *time.Location
}

// NewTransformer creates a transformer converting source dates from the
// given IANA time zone.
func NewTransformer(timezone string) (*Transformer, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown source timezone %q: %w", timezone, err)
	}
	return &Transformer{loc: loc}, nil
}

// Transform produces a staged TradeRecord from a raw row, or a row-level
// failure. Missing price or quantity is not a failure: the record is flagged
// incomplete and still persisted. Garbage values and malformed dates are
// failures and exclude the row from persistence.
func (t *Transformer) Transform(raw RawTradeRecord) (*types.TradeRecord, error) {
	tradeNumber := strings.TrimSpace(raw.TradeNumber)
	if tradeNumber == "" {
		return nil, fmt.Errorf("trade_number is empty")
	}

	fillSequence, err := strconv.Atoi(strings.TrimSpace(raw.FillSequence))
	if err != nil {
		return nil, fmt.Errorf("invalid fill_sequence %q", raw.FillSequence)
	}

	direction := strings.ToUpper(strings.TrimSpace(raw.Direction))
	if direction != types.DirectionBuy && direction != types.DirectionSell {
		return nil, fmt.Errorf("invalid direction %q", raw.Direction)
	}

	quantity, err := parseSourceDecimal(raw.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity: %w", err)
	}

	price, err := parseSourceDecimal(raw.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price: %w", err)
	}

	fee, err := parseSourceDecimal(raw.Fee)
	if err != nil {
		return nil, fmt.Errorf("invalid fee: %w", err)
	}

	localDate, utcInstant, err := t.convertTradeDate(raw.TradeDateLocal)
	if err != nil {
		return nil, err
	}

	record := &types.TradeRecord{
		TradeNumber:    tradeNumber,
		FillSequence:   fillSequence,
		Product:        strings.TrimSpace(raw.Product),
		Market:         strings.TrimSpace(raw.Market),
		Direction:      direction,
		Quantity:       quantity,
		Price:          price,
		Counterparty:   strings.TrimSpace(raw.Counterparty),
		Fee:            fee,
		TradeDateLocal: localDate,
		TradeDateUTC:   utcInstant,
	}

	// Completeness is decided by presence, never by downstream arithmetic.
	record.IsComplete = price.Valid && quantity.Valid
	if record.IsComplete {
		record.TotalValue = decimal.NullDecimal{
			Decimal: price.Decimal.Mul(quantity.Decimal),
			Valid:   true,
		}
	}

	return record, nil
}

// convertTradeDate parses a DD/MM/YYYY calendar date and returns local
// midnight in the source zone together with the corresponding UTC instant.
// The zone's seasonal offset at that date applies, so an AEDT summer date
// lands eleven hours earlier in UTC and an AEST winter date ten.
func (t *Transformer) convertTradeDate(value string) (time.Time, time.Time, error) {
	parsed, err := time.ParseInLocation(sourceDateLayout, strings.TrimSpace(value), t.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid trade date %q", value)
	}
	return parsed, parsed.UTC(), nil
}

// parseSourceDecimal parses a comma-decimal source value. Empty means
// missing, which is not an error; anything else must be numeric.
func parseSourceDecimal(value string) (decimal.NullDecimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.NullDecimal{}, nil
	}

	normalized := strings.ReplaceAll(trimmed, ",", ".")
	parsed, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("not a number: %q", value)
	}
	return decimal.NullDecimal{Decimal: parsed, Valid: true}, nil
}
