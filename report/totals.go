package report

import (
	"github.com/shopspring/decimal"

	"github.com/xraph/costledger/record"
	"github.com/xraph/costledger/types"
)

// Totals is the folder-level rollup. Investment sums the total amounts of
// debit records, Earning sums credit records, Profit is the difference.
type Totals struct {
	Investment types.Money
	Earning    types.Money
	Profit     types.Money
}

// ComputeTotals folds record totals into a Totals. All records are assumed
// to share a currency; an empty slice yields zero USD totals.
func ComputeTotals(records []*record.Record) Totals {
	currency := "USD"
	if len(records) > 0 {
		currency = records[0].TotalAmount.Currency
	}

	t := Totals{
		Investment: types.Zero(currency),
		Earning:    types.Zero(currency),
	}
	for _, r := range records {
		switch r.Type {
		case record.TypeDebit:
			t.Investment = t.Investment.Add(r.TotalAmount)
		case record.TypeCredit:
			t.Earning = t.Earning.Add(r.TotalAmount)
		}
	}
	t.Profit = t.Earning.Subtract(t.Investment)
	return t
}

// ComputeCategoryTotals breaks the rollup down per record category.
func ComputeCategoryTotals(records []*record.Record) map[record.Category]Totals {
	byCategory := make(map[record.Category][]*record.Record)
	for _, r := range records {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	out := make(map[record.Category]Totals, len(byCategory))
	for cat, recs := range byCategory {
		out[cat] = ComputeTotals(recs)
	}
	return out
}

// Slice is one share of a breakdown, sized for chart rendering. Share is
// the fraction of the whole, rounded to four decimal places.
type Slice struct {
	Label  string
	Amount types.Money
	Share  decimal.Decimal
}

// ChartSummary turns per-category totals into investment shares. Categories
// with zero investment are skipped.
func ChartSummary(records []*record.Record) []Slice {
	byCategory := ComputeCategoryTotals(records)

	var total decimal.Decimal
	for _, t := range byCategory {
		total = total.Add(t.Investment.Decimal())
	}

	slices := make([]Slice, 0, len(byCategory))
	for _, cat := range []record.Category{record.CategoryProject, record.CategoryOther} {
		t, ok := byCategory[cat]
		if !ok || t.Investment.IsZero() {
			continue
		}
		share := decimal.Zero
		if !total.IsZero() {
			share = t.Investment.Decimal().Div(total).Round(4)
		}
		slices = append(slices, Slice{
			Label:  string(cat),
			Amount: t.Investment,
			Share:  share,
		})
	}
	return slices
}
