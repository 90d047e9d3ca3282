package ingest

// RawTradeRecord carries the string-typed source fields of one row of the
// clearing feed file, exactly as read. All validation and typing happens in
// the Transformer.
type RawTradeRecord struct {
	TradeDateLocal string `json:"trade_date_aest"` // DD/MM/YYYY in the source zone
	TradeNumber    string `json:"trade_number"`
	FillSequence   string `json:"fill_sequence"`
	Product        string `json:"product"`
	Market         string `json:"market"`
	Direction      string `json:"direction"`
	Quantity       string `json:"quantity"`
	Price          string `json:"price"`
	Counterparty   string `json:"counterparty"`
	Fee            string `json:"fee"`
}

// RowFailure records a row-level transform failure. Failed rows are skipped,
// never persisted, and never abort the run.
type RowFailure struct {
	Line   int    `json:"line"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Result summarizes a completed ingest run.
type Result struct {
	RunID         string       `json:"run_id"`
	RowsRead      int          `json:"rows_read"`
	RowsPersisted int          `json:"rows_persisted"`
	Incomplete    int          `json:"incomplete"`
	Batches       int          `json:"batches"`
	Failures      []RowFailure `json:"failures,omitempty"`
}
