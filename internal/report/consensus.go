package report

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/statement-analyzer/constants"
	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
)

// ReasonNoReports is set when no model produced a report.
const ReasonNoReports = "no valid reports"

// Compare reports agreement across models on total_credits.
//
// models fixes the iteration order; entries without a report are skipped. The
// majority is the most frequent 2dp total, ties going to the first one seen.
func Compare(models []string, reports map[string]entity.FinalReport) entity.ConsensusResult {
	type vote struct {
		key   string
		value float64
		count int
	}
	var (
		votes    []*vote
		byKey    = map[string]*vote{}
		perModel = map[string]float64{}
		lo, hi   decimal.Decimal
		seen     int
	)

	for _, m := range models {
		r, ok := reports[m]
		if !ok {
			continue
		}
		d := decimal.NewFromFloat(r.TotalCredits).Round(2)
		if seen == 0 || d.LessThan(lo) {
			lo = d
		}
		if seen == 0 || d.GreaterThan(hi) {
			hi = d
		}
		seen++

		perModel[m] = r.TotalCredits
		key := d.StringFixed(2)
		v, ok := byKey[key]
		if !ok {
			v = &vote{key: key, value: Round2(d)}
			byKey[key] = v
			votes = append(votes, v)
		}
		v.count++
	}

	if seen == 0 {
		return entity.ConsensusResult{Agreement: false, Reason: ReasonNoReports}
	}

	spread := hi.Sub(lo)
	best := votes[0]
	counts := make(map[string]int, len(votes))
	for _, v := range votes {
		counts[v.key] = v.count
		if v.count > best.count {
			best = v
		}
	}
	majority := best.value

	return entity.ConsensusResult{
		Agreement: spread.LessThanOrEqual(decimal.NewFromFloat(constants.AgreementTolerance)),
		Range: &entity.TotalsRange{
			Min:    Round2(lo),
			Max:    Round2(hi),
			Spread: Round2(spread),
		},
		MajorityTotalCredits: &majority,
		NoMajority:           seen > 1 && len(votes) == seen,
		Votes:                counts,
		PerModelTotals:       perModel,
	}
}
