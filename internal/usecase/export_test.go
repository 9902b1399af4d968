package usecase

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlipSight/internal/domain/models"
)

func i64(v int64) *int64 { return &v }

func TestExportImportRoundTrip(t *testing.T) {
	date := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*models.FlipRecord{
		{
			ID: 200, ItemID: 561, ItemName: "Nature rune", Qty: 500, BuyPrice: 100,
			SellGross: i64(61_000), SellNet: i64(60_000),
			TargetBuy: 98, TargetSell: 122, ExpectedProfit: 10_000,
			ActualProfit: i64(10_000), Tax: 1000,
			Status: models.FlipComplete, Date: date, SplitFrom: 100,
		},
		{
			ID: 100, ItemID: 2, ItemName: "Cannonball, steel", Qty: 2000, BuyPrice: 180,
			TargetSell: 195, ExpectedProfit: 22_000,
			Status: models.FlipPending, Date: date.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportFlips(&buf, records))

	got, err := ImportFlips(&buf, time.Now())
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range records {
		want := records[i]
		have := got[i]
		assert.Equal(t, want.ID, have.ID)
		assert.Equal(t, want.ItemID, have.ItemID)
		assert.Equal(t, want.ItemName, have.ItemName)
		assert.Equal(t, want.Qty, have.Qty)
		assert.Equal(t, want.BuyPrice, have.BuyPrice)
		assert.Equal(t, want.SellGross, have.SellGross)
		assert.Equal(t, want.SellNet, have.SellNet)
		assert.Equal(t, want.TargetBuy, have.TargetBuy)
		assert.Equal(t, want.TargetSell, have.TargetSell)
		assert.Equal(t, want.ExpectedProfit, have.ExpectedProfit)
		assert.Equal(t, want.ActualProfit, have.ActualProfit)
		assert.Equal(t, want.Tax, have.Tax)
		assert.Equal(t, want.Status, have.Status)
		assert.True(t, want.Date.Equal(have.Date))
		assert.Equal(t, want.SplitFrom, have.SplitFrom)
	}
}

func TestImportFlipsLegacyHeaders(t *testing.T) {
	csv := strings.Join([]string{
		"# exported 2026-03-01",
		"ID,Item ID,Item Name,Buy Price,Sell Price (Gross),Sell Price (Net),Quantity,Status,Date",
		`1,561,"Nature rune",100,122,120,500,complete,2026-03-01T12:00:00Z`,
		"2,2,Cannonball,180,,,2000,pending,2026-03-01T11:00:00Z",
	}, "\n")

	got, err := ImportFlips(strings.NewReader(csv), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Nature rune", got[0].ItemName)
	assert.Equal(t, int64(100), got[0].BuyPrice)
	require.NotNil(t, got[0].SellNet)
	assert.Equal(t, int64(120), *got[0].SellNet)
	assert.Equal(t, models.FlipComplete, got[0].Status)

	assert.Equal(t, models.FlipPending, got[1].Status)
	assert.Nil(t, got[1].SellGross)
}

func TestImportFlipsSkipsInvalidRows(t *testing.T) {
	csv := strings.Join([]string{
		"itemName,buyPrice,quantity",
		",100,10",
		"Nature rune,100,0",
		"Nature rune,100,10",
	}, "\n")

	got, err := ImportFlips(strings.NewReader(csv), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].Qty)
}

func TestImportFlipsNoHeader(t *testing.T) {
	_, err := ImportFlips(strings.NewReader(""), time.Now())
	assert.Error(t, err)

	_, err = ImportFlips(strings.NewReader("foo,bar\n1,2"), time.Now())
	assert.Error(t, err, "headers without an item name column are rejected")
}

func TestImportBankExactMatch(t *testing.T) {
	csv := strings.Join([]string{
		"name,date,quantity,price,state",
		"Nature rune,2026-03-01 10:00,100,100,BOUGHT",
		"Nature rune,2026-03-01 11:55 PM,100,120,SOLD",
	}, "\n")

	got, err := ImportFlips(strings.NewReader(csv), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 1)

	rec := got[0]
	assert.Equal(t, models.FlipComplete, rec.Status)
	assert.Equal(t, int64(100), rec.Qty)
	assert.Equal(t, int64(100), rec.BuyPrice)
	// Sold prices are net payouts: gross 122 carries 2 gp tax back to 120.
	require.NotNil(t, rec.SellNet)
	assert.Equal(t, int64(120*100), *rec.SellNet)
	require.NotNil(t, rec.SellGross)
	assert.Equal(t, int64(122*100), *rec.SellGross)
	assert.Equal(t, int64(2*100), rec.Tax)
	require.NotNil(t, rec.ActualProfit)
	assert.Equal(t, int64(20*100), *rec.ActualProfit)
	// The buy leg's timestamp dates the flip.
	assert.Equal(t, 10, rec.Date.Hour())
}

func TestImportBankClosestMatchWithRemainder(t *testing.T) {
	csv := strings.Join([]string{
		"name,date,quantity,price,state",
		"Yew logs,2026-03-01 09:00,100,50,BOUGHT",
		"Yew logs,2026-03-01 10:00,80,55,SOLD",
	}, "\n")

	got, err := ImportFlips(strings.NewReader(csv), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 2)

	sold := got[0]
	assert.Equal(t, models.FlipComplete, sold.Status)
	assert.Equal(t, int64(80), sold.Qty)
	require.NotNil(t, sold.SellNet)
	assert.Equal(t, int64(55*80), *sold.SellNet)
	require.NotNil(t, sold.ActualProfit)
	assert.Equal(t, int64(5*80), *sold.ActualProfit)

	rest := got[1]
	assert.Equal(t, models.FlipPending, rest.Status)
	assert.Equal(t, int64(20), rest.Qty)
	assert.Equal(t, int64(50), rest.BuyPrice)
}

func TestImportBankRejectsDistantQuantities(t *testing.T) {
	csv := strings.Join([]string{
		"name,date,quantity,price,state",
		"Yew logs,2026-03-01 09:00,100,50,BOUGHT",
		"Yew logs,2026-03-01 10:00,30,55,SOLD",
	}, "\n")

	got, err := ImportFlips(strings.NewReader(csv), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 1, "unmatched sells are dropped")
	assert.Equal(t, models.FlipPending, got[0].Status)
	assert.Equal(t, int64(100), got[0].Qty)
}

func TestImportBankPrefersOldestBuy(t *testing.T) {
	csv := strings.Join([]string{
		"name,date,quantity,price,state",
		"Nature rune,2026-03-01 12:00,100,105,BOUGHT",
		"Nature rune,2026-03-01 08:00,100,100,BOUGHT",
		"Nature rune,2026-03-01 14:00,100,120,SOLD",
	}, "\n")

	got, err := ImportFlips(strings.NewReader(csv), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, models.FlipComplete, got[0].Status)
	assert.Equal(t, int64(100), got[0].BuyPrice, "oldest buy pairs first")
	assert.Equal(t, models.FlipPending, got[1].Status)
	assert.Equal(t, int64(105), got[1].BuyPrice)
}

func TestLedgerImportMergeAndReplace(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	existing, err := l.Open(ctx, OpenFlip{ItemName: "Nature rune", BuyPrice: 100, Qty: 10})
	require.NoError(t, err)

	added := l.Import(ctx, []*models.FlipRecord{
		{ID: existing.ID, ItemName: "Cannonball", Qty: 5, BuyPrice: 180,
			Status: models.FlipPending, Date: time.Now().Add(time.Minute)},
		{ItemName: "Yew logs", Qty: 50, BuyPrice: 300,
			Status: models.FlipPending, Date: time.Now().Add(-time.Hour)},
	}, false)
	assert.Equal(t, 2, added)

	records := l.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "Cannonball", records[0].ItemName, "newest date first")
	assert.Equal(t, "Yew logs", records[2].ItemName)
	assert.NotEqual(t, existing.ID, records[0].ID, "colliding import id is reassigned")

	ids := make(map[int64]bool)
	for _, rec := range records {
		assert.False(t, ids[rec.ID])
		ids[rec.ID] = true
	}

	l.Import(ctx, []*models.FlipRecord{
		{ItemName: "Rune scimitar", Qty: 1, BuyPrice: 15_000,
			Status: models.FlipPending, Date: time.Now()},
	}, true)
	records = l.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "Rune scimitar", records[0].ItemName)
}

func TestExportLimits(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []*models.BuyLimitRecord{
		{
			ItemID: 561, ItemName: "Nature rune", BuyLimit: 12_000,
			Purchases: []models.LimitPurchase{{At: now.Add(-time.Hour), Qty: 4000}},
		},
		{ItemID: 2, ItemName: "Cannonball", BuyLimit: 9000},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportLimits(&buf, records, now))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "itemId,itemName,buyLimit,used,remaining,resetAt", lines[0])
	assert.Equal(t, "561,Nature rune,12000,4000,8000,2026-03-01T15:00:00Z", lines[1])
	assert.Equal(t, "2,Cannonball,9000,0,9000,", lines[2])
}
