package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"FlipSight/internal/domain/models"
)

// flipHeader lists the ledger export columns, named after the record's
// JSON fields so exports round-trip the persisted schema exactly.
var flipHeader = []string{
	"id", "itemId", "itemName", "quantity", "buyPrice",
	"sellPriceGross", "sellPriceNet", "suggestedBuy", "suggestedSell",
	"expectedProfit", "actualProfit", "tax", "status", "date", "splitFrom",
}

var limitHeader = []string{"itemId", "itemName", "buyLimit", "used", "remaining", "resetAt"}

// ExportFlips writes the ledger as CSV. Optional fields (pending sell
// side, untargeted flips, non-split records) export as empty cells.
func ExportFlips(w io.Writer, records []*models.FlipRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(flipHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			optCell(int64(rec.ItemID)),
			rec.ItemName,
			strconv.FormatInt(rec.Qty, 10),
			strconv.FormatInt(rec.BuyPrice, 10),
			ptrCell(rec.SellGross),
			ptrCell(rec.SellNet),
			optCell(rec.TargetBuy),
			optCell(rec.TargetSell),
			strconv.FormatInt(rec.ExpectedProfit, 10),
			ptrCell(rec.ActualProfit),
			strconv.FormatInt(rec.Tax, 10),
			string(rec.Status),
			rec.Date.UTC().Format(time.RFC3339),
			optCell(rec.SplitFrom),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportLimits writes the buy-limit table as of now.
func ExportLimits(w io.Writer, records []*models.BuyLimitRecord, now time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(limitHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		reset := ""
		if at := rec.ResetAt(now); !at.IsZero() {
			reset = at.UTC().Format(time.RFC3339)
		}
		row := []string{
			strconv.Itoa(rec.ItemID),
			rec.ItemName,
			strconv.FormatInt(rec.BuyLimit, 10),
			strconv.FormatInt(rec.Used(now), 10),
			strconv.FormatInt(rec.Remaining(now), 10),
			reset,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", rec.ItemID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportFlips parses a ledger CSV. Two layouts are accepted, detected from
// the header row: the native export above, and a bank-style transaction log
// (name,date,quantity,price,state) in which BOUGHT and SOLD rows are paired
// into completed flips. Headers match case-insensitively and rows starting
// with '#' are skipped.
func ImportFlips(r io.Reader, now time.Time) ([]*models.FlipRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	header, start := headerRow(rows)
	if header == nil {
		return nil, errors.New("no header row found")
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	if hasCols(cols, "state", "name", "price") {
		return importBank(rows[start:], cols, now), nil
	}
	if _, ok := lookup(cols, "itemname", "item name", "name"); !ok {
		return nil, errors.New("missing item name column")
	}
	return importNative(rows[start:], cols, now), nil
}

func importNative(rows [][]string, cols map[string]int, now time.Time) []*models.FlipRecord {
	records := make([]*models.FlipRecord, 0, len(rows))
	for i, row := range rows {
		get := func(names ...string) string { return cell(row, cols, names...) }

		name := strings.TrimSpace(get("itemname", "item name", "name"))
		qty := parseI64(get("quantity"), 1)
		if name == "" || qty <= 0 {
			continue
		}

		rec := &models.FlipRecord{
			ID:             parseI64(get("id"), now.UnixMilli()+int64(i)),
			ItemID:         int(parseI64(get("itemid", "item id"), 0)),
			ItemName:       name,
			Qty:            qty,
			BuyPrice:       parseI64(get("buyprice", "buy price", "price"), 0),
			TargetBuy:      parseI64(get("suggestedbuy", "suggested buy"), 0),
			TargetSell:     parseI64(get("suggestedsell", "suggested sell"), 0),
			ExpectedProfit: parseI64(get("expectedprofit", "expected profit"), 0),
			Tax:            parseI64(get("tax"), 0),
			Status:         models.FlipPending,
			Date:           parseDate(get("date"), now),
			SplitFrom:      parseI64(get("splitfrom", "split from"), 0),
		}
		rec.SellGross = optParse(get("sellpricegross", "sell price (gross)"))
		rec.SellNet = optParse(get("sellpricenet", "sell price (net)"))
		rec.ActualProfit = optParse(get("actualprofit", "actual profit"))
		if strings.EqualFold(strings.TrimSpace(get("status")), string(models.FlipComplete)) {
			rec.Status = models.FlipComplete
		}
		records = append(records, rec)
	}
	return records
}

// bankEntry is one BOUGHT or SOLD row of the transaction-log format.
// Prices are per item; sold prices are what the exchange paid out, i.e. net.
type bankEntry struct {
	name  string
	price int64
	qty   int64
	date  time.Time
}

func importBank(rows [][]string, cols map[string]int, now time.Time) []*models.FlipRecord {
	type group struct {
		bought []bankEntry
		sold   []bankEntry
	}
	groups := make(map[string]*group)
	var order []string

	for _, row := range rows {
		get := func(names ...string) string { return cell(row, cols, names...) }

		name := strings.TrimSpace(get("name"))
		qty := parseI64(get("quantity"), 1)
		if name == "" || qty <= 0 {
			continue
		}
		state := strings.ToUpper(strings.TrimSpace(get("state")))
		entry := bankEntry{
			name:  name,
			price: parseI64(get("price"), 0),
			qty:   qty,
			date:  parseDate(get("date"), now),
		}

		key := strings.ToLower(name)
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		switch state {
		case "BOUGHT", "BUY":
			g.bought = append(g.bought, entry)
		case "SOLD", "SELL":
			g.sold = append(g.sold, entry)
		}
	}

	var flips []*models.FlipRecord
	id := now.UnixMilli()
	nextID := func() int64 {
		id++
		return id - 1
	}

	for _, key := range order {
		g := groups[key]
		flips = append(flips, matchBankGroup(g.bought, g.sold, nextID)...)
	}
	return flips
}

// matchBankGroup pairs buys with sells for one item. Exact quantity
// matches pair first; remaining entries pair with the closest quantity
// when the difference is within half the smaller side, leaving the
// unmatched remainder as a fresh entry. Leftover buys become pending
// flips; leftover sells are dropped.
func matchBankGroup(bought, sold []bankEntry, nextID func() int64) []*models.FlipRecord {
	sort.SliceStable(bought, func(i, j int) bool { return bought[i].date.Before(bought[j].date) })
	sort.SliceStable(sold, func(i, j int) bool { return sold[i].date.Before(sold[j].date) })

	usedBought := make(map[int]bool)
	usedSold := make(map[int]bool)
	var flips []*models.FlipRecord

	closeOut := func(buy bankEntry, sell bankEntry, qty int64) {
		rec := &models.FlipRecord{
			ID:       nextID(),
			ItemName: buy.name,
			BuyPrice: buy.price,
			Date:     buy.date,
		}
		applySale(rec, sell.price, qty, true)
		flips = append(flips, rec)
	}

	for i := 0; i < len(bought); i++ {
		if usedBought[i] {
			continue
		}
		for j := 0; j < len(sold); j++ {
			if usedSold[j] || bought[i].qty != sold[j].qty {
				continue
			}
			closeOut(bought[i], sold[j], bought[i].qty)
			usedBought[i] = true
			usedSold[j] = true
			break
		}
	}

	// Second pass over what remains. Remainder entries appended here are
	// themselves revisited, so a large buy can drain several sells.
	for i := 0; i < len(bought); i++ {
		if usedBought[i] {
			continue
		}
		best, bestDiff := -1, int64(-1)
		for j := 0; j < len(sold); j++ {
			if usedSold[j] {
				continue
			}
			diff := bought[i].qty - sold[j].qty
			if diff < 0 {
				diff = -diff
			}
			if best == -1 || diff < bestDiff {
				best, bestDiff = j, diff
			}
		}
		if best == -1 {
			continue
		}
		smaller := bought[i].qty
		if sold[best].qty < smaller {
			smaller = sold[best].qty
		}
		if bestDiff > smaller/2 {
			continue
		}

		matched := smaller
		closeOut(bought[i], sold[best], matched)
		usedBought[i] = true
		usedSold[best] = true

		if rest := bought[i].qty - matched; rest > 0 {
			e := bought[i]
			e.qty = rest
			bought = append(bought, e)
		}
		if rest := sold[best].qty - matched; rest > 0 {
			e := sold[best]
			e.qty = rest
			sold = append(sold, e)
		}
	}

	for i, entry := range bought {
		if usedBought[i] {
			continue
		}
		flips = append(flips, &models.FlipRecord{
			ID:       nextID(),
			ItemName: entry.name,
			Qty:      entry.qty,
			BuyPrice: entry.price,
			Status:   models.FlipPending,
			Date:     entry.date,
		})
	}
	return flips
}

// Import merges parsed records into the ledger, or replaces it entirely.
// Imported ids are kept when unique; missing or colliding ids are
// reassigned. Returns the number of records added.
func (l *Ledger) Import(ctx context.Context, records []*models.FlipRecord, replace bool) int {
	l.mu.Lock()
	if replace {
		l.records = nil
	}
	seen := make(map[int64]bool, len(l.records)+len(records))
	for _, rec := range l.records {
		seen[rec.ID] = true
	}
	for _, rec := range records {
		c := rec.Clone()
		if c.ID <= 0 || seen[c.ID] {
			c.ID = l.nextID(l.now())
		}
		if c.ID > l.lastID {
			l.lastID = c.ID
		}
		seen[c.ID] = true
		l.records = append(l.records, c)
	}
	sort.SliceStable(l.records, func(i, j int) bool {
		a, b := l.records[i], l.records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID > b.ID
	})
	l.persistLocked(ctx)
	l.mu.Unlock()

	l.metrics.RecordLedgerOp("import")
	l.notify()
	return len(records)
}

func headerRow(rows [][]string) ([]string, int) {
	for i, row := range rows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		return row, i + 1
	}
	return nil, 0
}

func hasCols(cols map[string]int, names ...string) bool {
	for _, name := range names {
		if _, ok := cols[name]; !ok {
			return false
		}
	}
	return true
}

func lookup(cols map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if idx, ok := cols[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

func cell(row []string, cols map[string]int, names ...string) string {
	idx, ok := lookup(cols, names...)
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func optCell(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func ptrCell(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optParse(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v := parseI64(s, 0)
	return &v
}

// parseI64 reads an integer cell, tolerating decimal notation from
// spreadsheet exports.
func parseI64(s string, fallback int64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return fallback
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 3:04 PM",
	"2006-01-02",
}

func parseDate(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}
