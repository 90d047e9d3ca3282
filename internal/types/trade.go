package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"
)

// TradeRecord is a staged trade captured from the clearing/exchange feed.
// Identity is the composite (trade_number, fill_sequence) key; re-ingesting
// the same key overwrites the derived fields and bumps UpdatedAt, it never
// creates a second row.
type TradeRecord struct {
	gorm.Model     `json:"-"`
	TradeNumber    string              `gorm:"uniqueIndex:idx_trade_fill;size:64" json:"trade_number"`
	FillSequence   int                 `gorm:"uniqueIndex:idx_trade_fill" json:"fill_sequence"`
	Product        string              `json:"product"`
	Market         string              `json:"market"`
	Direction      string              `json:"direction"` // BUY or SELL
	Quantity       decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"quantity"`
	Price          decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"price"`
	Counterparty   string              `json:"counterparty"`
	Fee            decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"fee"`
	TradeDateLocal time.Time           `json:"trade_date_local"`
	TradeDateUTC   time.Time           `json:"trade_date_utc"`
	IsComplete     bool                `json:"is_complete"`
	TotalValue     decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"total_value"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Key renders the composite identity for logs and error messages.
func (t *TradeRecord) Key() string {
	return fmt.Sprintf("%s-%d", t.TradeNumber, t.FillSequence)
}

// BankRecord is a statement line captured from the counterparty/bank feed.
// The reconciliation view joins these against staged trades on BankRef.
type BankRecord struct {
	gorm.Model    `json:"-"`
	BankRef       string              `gorm:"uniqueIndex;size:64" json:"bank_ref"`
	Product       string              `json:"product"`
	Counterparty  string              `json:"counterparty"`
	BankValue     decimal.NullDecimal `gorm:"type:decimal(20,8)" json:"bank_value"`
	StatementDate time.Time           `json:"statement_date"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
