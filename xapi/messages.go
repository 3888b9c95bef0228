package xapi

import "encoding/json"

// Trade command constants, as the venue encodes them.
const (
	CmdBuy  = 0
	CmdSell = 1
)

// Order type constants for tradeTransaction.
const (
	OrderOpen = 0
)

// Chart period constants, in minutes.
const (
	PeriodM1  = 1
	PeriodM5  = 5
	PeriodM15 = 15
	PeriodM30 = 30
	PeriodH1  = 60
	PeriodH4  = 240
	PeriodD1  = 1440
)

type request struct {
	Command   string `json:"command"`
	Arguments any    `json:"arguments,omitempty"`
	CustomTag string `json:"customTag,omitempty"`
}

type response struct {
	Status          bool            `json:"status"`
	ReturnData      json.RawMessage `json:"returnData,omitempty"`
	StreamSessionID string          `json:"streamSessionId,omitempty"`
	ErrorCode       string          `json:"errorCode,omitempty"`
	ErrorDescr      string          `json:"errorDescr,omitempty"`
	CustomTag       string          `json:"customTag,omitempty"`
}

// RateInfo is one raw candle row from getChartLastRequest. Ctm is the candle
// open time in epoch milliseconds.
type RateInfo struct {
	Ctm   int64   `json:"ctm"`
	Open  float64 `json:"open"`
	Close float64 `json:"close"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Vol   float64 `json:"vol"`
}

// ChartData is the returnData of getChartLastRequest.
type ChartData struct {
	Digits    int        `json:"digits"`
	RateInfos []RateInfo `json:"rateInfos"`
}

// SymbolInfo is the returnData of getSymbol.
type SymbolInfo struct {
	Symbol        string  `json:"symbol"`
	Ask           float64 `json:"ask"`
	Bid           float64 `json:"bid"`
	LotMin        float64 `json:"lotMin"`
	LotStep       float64 `json:"lotStep"`
	Precision     int     `json:"precision"`
	PipsPrecision int     `json:"pipsPrecision"`
	SpreadRaw     float64 `json:"spreadRaw"`
}

// Trade is one row of the getTrades response. Order2 is the identifier the
// venue reports for the working position opened by a transaction.
type Trade struct {
	Order     int64   `json:"order"`
	Order2    int64   `json:"order2"`
	Symbol    string  `json:"symbol"`
	Cmd       int     `json:"cmd"`
	Volume    float64 `json:"volume"`
	OpenPrice float64 `json:"open_price"`
	SL        float64 `json:"sl"`
	TP        float64 `json:"tp"`
	Profit    float64 `json:"profit"`
}

// MarginLevel is the returnData of getMarginLevel.
type MarginLevel struct {
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	MarginFree float64 `json:"margin_free"`
}

// TradeTransInfo is the order payload for tradeTransaction.
type TradeTransInfo struct {
	Cmd           int     `json:"cmd"`
	Symbol        string  `json:"symbol"`
	Volume        float64 `json:"volume"`
	Type          int     `json:"type"`
	Price         float64 `json:"price"`
	SL            float64 `json:"sl"`
	TP            float64 `json:"tp"`
	CustomComment string  `json:"customComment,omitempty"`
}

type loginArguments struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	AppName  string `json:"appName,omitempty"`
}

type chartLastInfo struct {
	Symbol string `json:"symbol"`
	Period int    `json:"period"`
	Start  int64  `json:"start"` // epoch millis
}

type chartLastArguments struct {
	Info chartLastInfo `json:"info"`
}

type symbolArguments struct {
	Symbol string `json:"symbol"`
}

type tradesArguments struct {
	OpenedOnly bool `json:"openedOnly"`
}

type tradeTransactionArguments struct {
	TradeTransInfo TradeTransInfo `json:"tradeTransInfo"`
}

type tradeTransactionReturn struct {
	Order int64 `json:"order"`
}
