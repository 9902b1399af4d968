package models

// ListItemsRequest filters and orders the snapshot listing.
type ListItemsRequest struct {
	Tier       string `query:"tier" json:"tier" validate:"omitempty,oneof=fast liquid medium highValue slow"`
	SafeOnly   bool   `query:"safeOnly" json:"safeOnly"`
	ActiveOnly bool   `query:"activeOnly" json:"activeOnly"`
	MinVolume  int64  `query:"minVolume" json:"minVolume" validate:"gte=0"`
	MaxBuy     int64  `query:"maxBuy" json:"maxBuy" validate:"gte=0"`
	Search     string `query:"q" json:"q"`
	SortBy     string `query:"sortBy" json:"sortBy" default:"profitPerHour" validate:"oneof=roi profit profitPerHour volume spread name"`
	Asc        bool   `query:"asc" json:"asc"`
	Limit      int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}

// SuggestionsRequest tunes the ranked suggestion list.
type SuggestionsRequest struct {
	Budget            int64 `query:"budget" json:"budget" validate:"gte=0"`
	MinScore          int   `query:"minScore" json:"minScore" default:"30" validate:"gte=0,lte=100"`
	MaxResults        int   `query:"maxResults" json:"maxResults" default:"10" validate:"gte=1,lte=100"`
	IncludeStale      bool  `query:"includeStale" json:"includeStale"`
	IncludeExtremeVol bool  `query:"includeExtremeVol" json:"includeExtremeVol"`
	WindowDays        int   `query:"windowDays" json:"windowDays" default:"7" validate:"gte=1,lte=30"`
}

// WindowRequest selects the history window for signals and bars.
type WindowRequest struct {
	WindowDays int `query:"windowDays" json:"windowDays" default:"7" validate:"gte=1,lte=30"`
}

// OpenFlipRequest opens a position; a SellPrice closes it immediately.
type OpenFlipRequest struct {
	ItemID     int    `json:"itemId" validate:"gte=0"`
	ItemName   string `json:"itemName" validate:"required"`
	BuyPrice   int64  `json:"buyPrice" validate:"required,gt=0"`
	Qty        int64  `json:"quantity" validate:"required,gt=0"`
	TargetBuy  int64  `json:"suggestedBuy" validate:"gte=0"`
	TargetSell int64  `json:"suggestedSell" validate:"gte=0"`
	SellPrice  int64  `json:"sellPrice" validate:"gte=0"`
	SellIsNet  bool   `json:"sellIsNet"`
}

// SellFlipRequest closes a flip. Quantity 0 sells the whole position;
// anything less splits the record.
type SellFlipRequest struct {
	SellPrice int64 `json:"sellPrice" validate:"required,gt=0"`
	Qty       int64 `json:"quantity" validate:"gte=0"`
	IsNet     bool  `json:"isNet"`
}

// EditFlipRequest patches a record. Nil fields stay untouched; a SellPrice
// of 0 clears the sale and returns the flip to pending.
type EditFlipRequest struct {
	ItemName   *string `json:"itemName,omitempty"`
	BuyPrice   *int64  `json:"buyPrice,omitempty"`
	SellPrice  *int64  `json:"sellPrice,omitempty"`
	Qty        *int64  `json:"quantity,omitempty"`
	TargetSell *int64  `json:"suggestedSell,omitempty"`
	SellIsNet  bool    `json:"sellIsNet"`
}

// AdjustLimitRequest records a manual buy-limit adjustment; negative
// quantities release quota.
type AdjustLimitRequest struct {
	Qty int64 `json:"quantity" validate:"required"`
}
