package models

import "time"

// ItemMeta is static reference data owned by the upstream catalog.
type ItemMeta struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	BuyLimit int64  `json:"limit"`
	Members  bool   `json:"members"`
	HighAlch int64  `json:"highalch,omitempty"`
}

// Quote is one bid/ask observation for an item, merged from the latest and
// 5-minute endpoints of the price feed. Averaged fields are zero when absent.
type Quote struct {
	ItemID       int   `json:"itemId"`
	BidInstant   int64 `json:"low"`
	AskInstant   int64 `json:"high"`
	BidAvg5m     int64 `json:"avgLowPrice,omitempty"`
	AskAvg5m     int64 `json:"avgHighPrice,omitempty"`
	BidAvg1h     int64 `json:"avgLowPrice1h,omitempty"`
	AskAvg1h     int64 `json:"avgHighPrice1h,omitempty"`
	BuyVolume5m  int64 `json:"highPriceVolume,omitempty"`
	SellVolume5m int64 `json:"lowPriceVolume,omitempty"`
	BidTime      int64 `json:"lowTime,omitempty"`  // epoch seconds
	AskTime      int64 `json:"highTime,omitempty"` // epoch seconds
}

// Valid reports whether the quote is usable for snapshot building.
// Non-positive or crossed bid/ask quotes are discarded, not errored.
func (q *Quote) Valid() bool {
	return q != nil && q.BidInstant > 0 && q.AskInstant > 0 && q.AskInstant > q.BidInstant
}

// QuoteTick is the normalized history record written to the quote backend on
// every refresh. Daily bars are aggregated from these.
type QuoteTick struct {
	ItemID int       `json:"itemId"`
	TS     time.Time `json:"ts"`
	Bid    int64     `json:"bid"`
	Ask    int64     `json:"ask"`
}
