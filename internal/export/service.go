package export

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
)

const (
	summarySheet   = "Summary"
	consensusSheet = "Consensus"
	txSheetPrefix  = "Tx - "
	maxSheetName   = 31 // Excel limit
)

// Service renders analysis reports as XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportReportXLSX returns a workbook with a per-model summary, the consensus
// block, and one transaction sheet per successful model.
func (s *Service) ExportReportXLSX(rep *entity.MultiModelReport) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("xlsx rename sheet: %w", err)
	}

	models := reportModels(rep)
	if err := writeSummary(f, rep, models); err != nil {
		return nil, err
	}
	if err := writeConsensus(f, rep.Comparison); err != nil {
		return nil, err
	}
	rows := 0
	for _, m := range models {
		r, ok := rep.ByModel[m]
		if !ok {
			continue
		}
		n, err := writeTransactions(f, m, r)
		if err != nil {
			return nil, err
		}
		rows += n
	}

	idx, _ := f.GetSheetIndex(summarySheet)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"job_id", rep.Meta.JobID,
		"models", len(models),
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// reportModels keeps the job's model order, then anything else sorted.
func reportModels(rep *entity.MultiModelReport) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range rep.Meta.Models {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	var rest []string
	for m := range rep.ByModel {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			rest = append(rest, m)
		}
	}
	for m := range rep.Errors {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			rest = append(rest, m)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func writeSummary(f *excelize.File, rep *entity.MultiModelReport, models []string) error {
	writeRow(f, summarySheet, 1,
		"Model", "Total Credits", "Currency", "Transactions", "Reported Total Credit", "Elapsed (ms)", "Status", "Notes")

	row := 2
	for _, m := range models {
		elapsed := rep.Meta.PerModelMS[m]
		if r, ok := rep.ByModel[m]; ok {
			var currency, reported any
			if r.CurrencyGuess != nil {
				currency = *r.CurrencyGuess
			}
			if r.ReportedTotalCredit != nil {
				reported = *r.ReportedTotalCredit
			}
			writeRow(f, summarySheet, row, m, r.TotalCredits, currency, r.TransactionCount, reported, elapsed,
				"ok", truncate(strings.Join(rep.Warnings[m], "; "), 500))
		} else {
			writeRow(f, summarySheet, row, m, nil, nil, nil, nil, elapsed, "error", truncate(rep.Errors[m], 500))
		}
		row++
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 28) // model
	_ = f.SetColWidth(summarySheet, "B", "F", 16)
	_ = f.SetColWidth(summarySheet, "G", "G", 10)
	_ = f.SetColWidth(summarySheet, "H", "H", 80) // notes
	return nil
}

func writeConsensus(f *excelize.File, c entity.ConsensusResult) error {
	if _, err := f.NewSheet(consensusSheet); err != nil {
		return fmt.Errorf("xlsx new sheet: %w", err)
	}
	writeRow(f, consensusSheet, 1, "Agreement", c.Agreement)
	row := 2
	if c.Reason != "" {
		writeRow(f, consensusSheet, row, "Reason", c.Reason)
		row++
	}
	if c.Range != nil {
		writeRow(f, consensusSheet, row, "Min", c.Range.Min)
		writeRow(f, consensusSheet, row+1, "Max", c.Range.Max)
		writeRow(f, consensusSheet, row+2, "Spread", c.Range.Spread)
		row += 3
	}
	if c.MajorityTotalCredits != nil {
		writeRow(f, consensusSheet, row, "Majority Total Credits", *c.MajorityTotalCredits)
		row++
		writeRow(f, consensusSheet, row, "No Majority", c.NoMajority)
		row++
	}

	if len(c.Votes) > 0 {
		row++
		writeRow(f, consensusSheet, row, "Total", "Votes")
		row++
		keys := make([]string, 0, len(c.Votes))
		for k := range c.Votes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeRow(f, consensusSheet, row, k, c.Votes[k])
			row++
		}
	}
	_ = f.SetColWidth(consensusSheet, "A", "A", 24)
	_ = f.SetColWidth(consensusSheet, "B", "B", 16)
	return nil
}

func writeTransactions(f *excelize.File, model string, r entity.FinalReport) (int, error) {
	sheet := sheetName(f, model)
	if _, err := f.NewSheet(sheet); err != nil {
		return 0, fmt.Errorf("xlsx new sheet: %w", err)
	}
	writeRow(f, sheet, 1, "Date", "Value Date", "Description", "Channel", "Doc No", "Amount", "Currency", "Type")
	for i, t := range r.Transactions {
		writeRow(f, sheet, i+2,
			t.Date, deref(t.ValueDate), truncate(t.Description, 200), deref(t.Channel), deref(t.DocNo),
			t.Amount, deref(t.Currency), string(t.Type))
	}

	_ = f.SetColWidth(sheet, "A", "B", 14) // dates
	_ = f.SetColWidth(sheet, "C", "C", 60) // description
	_ = f.SetColWidth(sheet, "D", "E", 16)
	_ = f.SetColWidth(sheet, "F", "F", 16) // amount
	_ = f.SetColWidth(sheet, "G", "H", 10)
	return len(r.Transactions), nil
}

// sheetName derives a legal, unique sheet name for a model like "qwen3:30b".
func sheetName(f *excelize.File, model string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, model)
	name := txSheetPrefix + clean
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	base := name
	for i := 2; ; i++ {
		if idx, _ := f.GetSheetIndex(name); idx == -1 {
			return name
		}
		suffix := fmt.Sprintf(" %d", i)
		name = base
		if len(name)+len(suffix) > maxSheetName {
			name = name[:maxSheetName-len(suffix)]
		}
		name += suffix
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
