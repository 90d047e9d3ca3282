// Command simulation generates a sample clearing feed file and a matching,
// deliberately skewed set of bank records, so a full ingest and
// reconciliation run can be exercised locally end to end.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"

	"github.com/ksred/recon-api/internal/config"
	"github.com/ksred/recon-api/internal/database"
	"github.com/ksred/recon-api/internal/types"
)

var (
	products       = []string{"WTI-CRUDE", "BRENT-CRUDE", "NATGAS-HH", "NEWC-COAL", "API2-COAL"}
	markets        = []string{"ICE", "CME", "ASX"}
	counterparties = []string{"Macquarie", "Glencore", "Trafigura", "Vitol", "BHP Marketing"}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

func main() {
	var (
		trades   = flag.Int("trades", 40, "number of distinct trade numbers to generate")
		out      = flag.String("out", "trades.csv", "output path for the generated feed file")
		seedBank = flag.Bool("seed-bank", true, "seed skewed bank records into the staging database")
	)
	flag.Parse()

	totals, err := writeFeedFile(*out, *trades)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate feed file")
	}
	log.Info().Str("file", *out).Int("trades", *trades).Msg("generated clearing feed file")

	if *seedBank {
		if err := seedBankRecords(totals); err != nil {
			log.Fatal().Err(err).Msg("failed to seed bank records")
		}
	}
}

// writeFeedFile generates the semicolon-delimited, comma-decimal feed and
// returns the complete-trade totals per trade number for bank seeding.
func writeFeedFile(path string, tradeCount int) (map[string]decimal.Decimal, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = ';'
	defer writer.Flush()

	header := []string{
		"trade_date_aest", "trade_number", "fill_sequence", "product", "market",
		"direction", "quantity", "price", "counterparty", "fee",
	}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	baseDate := time.Now().AddDate(0, 0, -30)

	for i := 0; i < tradeCount; i++ {
		tradeNumber := fmt.Sprintf("T%04d", i+1)
		product := products[rand.Intn(len(products))]
		market := markets[rand.Intn(len(markets))]
		counterparty := counterparties[rand.Intn(len(counterparties))]
		tradeDate := baseDate.AddDate(0, 0, rand.Intn(30)).Format("02/01/2006")

		fills := 1 + rand.Intn(3)
		for fill := 1; fill <= fills; fill++ {
			direction := types.DirectionBuy
			if rand.Intn(2) == 0 {
				direction = types.DirectionSell
			}

			quantity := decimal.NewFromInt(int64(1 + rand.Intn(500)))
			price := decimal.NewFromFloat(rand.Float64()*150 + 1).Round(2)
			fee := price.Mul(decimal.NewFromFloat(0.001)).Round(2)

			priceField := commaDecimal(price)
			// A handful of fills arrive without a price, exercising the
			// incomplete-record path.
			if rand.Intn(20) == 0 {
				priceField = ""
			} else {
				totals[tradeNumber] = totals[tradeNumber].Add(price.Mul(quantity))
			}

			row := []string{
				tradeDate,
				tradeNumber,
				fmt.Sprintf("%d", fill),
				product,
				market,
				direction,
				commaDecimal(quantity),
				priceField,
				counterparty,
				commaDecimal(fee),
			}
			if err := writer.Write(row); err != nil {
				return nil, err
			}
		}
	}

	writer.Flush()
	return totals, writer.Error()
}

// seedBankRecords writes the counterparty feed side: mostly exact matches,
// some skewed values, some trades dropped entirely, and a few bank-only
// references with no trade behind them.
func seedBankRecords(totals map[string]decimal.Decimal) error {
	cfg := config.Load()
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close(db)

	var records []*types.BankRecord
	skewed, dropped := 0, 0

	for tradeNumber, total := range totals {
		switch roll := rand.Intn(10); {
		case roll < 7: // exact match
			records = append(records, bankRecord(tradeNumber, total))
		case roll < 9: // skewed value
			skew := decimal.NewFromFloat(rand.Float64()*400 - 200).Round(2)
			records = append(records, bankRecord(tradeNumber, total.Add(skew)))
			skewed++
		default: // missing in bank
			dropped++
		}
	}

	// Bank-only references, missing on the exchange side
	for i := 0; i < 3; i++ {
		ref := fmt.Sprintf("B%04d", 9000+i)
		value := decimal.NewFromInt(int64(500 + rand.Intn(5000)))
		records = append(records, bankRecord(ref, value))
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bank_ref"}},
		DoUpdates: clause.AssignmentColumns([]string{"bank_value", "updated_at"}),
	}).Create(&records).Error
	if err != nil {
		return err
	}

	log.Info().
		Int("bank_records", len(records)).
		Int("skewed", skewed).
		Int("missing_in_bank", dropped).
		Msg("seeded bank records")
	return nil
}

func bankRecord(ref string, value decimal.Decimal) *types.BankRecord {
	return &types.BankRecord{
		BankRef:       ref,
		Product:       products[rand.Intn(len(products))],
		Counterparty:  counterparties[rand.Intn(len(counterparties))],
		BankValue:     decimal.NullDecimal{Decimal: value, Valid: true},
		StatementDate: time.Now(),
	}
}

// commaDecimal renders a decimal with the feed's comma fractional separator.
func commaDecimal(d decimal.Decimal) string {
	return strings.ReplaceAll(d.String(), ".", ",")
}
