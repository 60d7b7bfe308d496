package report

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
)

// Aggregate flattens pages into a FinalReport. total_credits is recomputed from
// the credit lines; any subtotal the model printed is kept for audit only.
func Aggregate(pages []entity.PageExtraction) entity.FinalReport {
	txs := make([]entity.Transaction, 0)
	credits := decimal.Zero
	var currency *string
	var reported *float64

	for _, p := range pages {
		for _, t := range p.Transactions {
			txs = append(txs, t)
			if t.Type == entity.TxCredit {
				credits = credits.Add(decimal.NewFromFloat(t.Amount))
			}
			if currency == nil && t.Currency != nil && *t.Currency != "" {
				c := *t.Currency
				currency = &c
			}
		}
		if p.DocumentTotals != nil && p.DocumentTotals.TotalCreditReported != nil {
			v := *p.DocumentTotals.TotalCreditReported
			reported = &v
		}
	}

	total := Round2(credits)
	return entity.FinalReport{
		TotalCredits:        total,
		TotalIncome:         total,
		CurrencyGuess:       currency,
		TransactionCount:    len(txs),
		ReportedTotalCredit: reported,
		Transactions:        txs,
	}
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
