package entity

import "time"

// FinalReport is one model's aggregated view of a whole statement.
type FinalReport struct {
	TotalCredits        float64       `json:"total_credits"`
	TotalIncome         float64       `json:"total_income"`
	CurrencyGuess       *string       `json:"currency_guess"`
	TransactionCount    int           `json:"transaction_count"`
	ReportedTotalCredit *float64      `json:"reported_total_credit,omitempty"`
	Transactions        []Transaction `json:"transactions"`
}

// TotalsRange is the spread of total_credits across models.
type TotalsRange struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Spread float64 `json:"spread"`
}

// ConsensusResult compares total_credits across successful models.
type ConsensusResult struct {
	Agreement            bool               `json:"agreement"`
	Reason               string             `json:"reason,omitempty"`
	Range                *TotalsRange       `json:"range,omitempty"`
	MajorityTotalCredits *float64           `json:"majority_total_credits,omitempty"`
	NoMajority           bool               `json:"no_majority,omitempty"`
	Votes                map[string]int     `json:"votes,omitempty"`
	PerModelTotals       map[string]float64 `json:"per_model_totals,omitempty"`
}

// JobMeta is the execution summary attached to a MultiModelReport.
type JobMeta struct {
	JobID       string                       `json:"job_id"`
	Models      []string                     `json:"models"`
	ChunksTotal int                          `json:"chunks_total"`
	ChunksDone  int                          `json:"chunks_done"`
	PerModelMS  map[string]int64             `json:"per_model_ms"`
	StartedAt   time.Time                    `json:"started_at"`
	FinishedAt  *time.Time                   `json:"finished_at,omitempty"`
	History     []string                     `json:"history"`
	ChunkStatus map[string][]ChunkCallStatus `json:"chunk_status,omitempty"`
}

// ChunkCallStatus is the terminal state of one model on one chunk.
type ChunkCallStatus struct {
	Chunk    int    `json:"chunk"`
	State    string `json:"state"`
	Repaired bool   `json:"repaired,omitempty"`
	Error    string `json:"error,omitempty"`
}

// MultiModelReport is the job output: one report or one error per model, plus comparison.
type MultiModelReport struct {
	ByModel    map[string]FinalReport `json:"by_model"`
	Errors     map[string]string      `json:"errors"`
	Warnings   map[string][]string    `json:"warnings,omitempty"`
	Comparison ConsensusResult        `json:"comparison"`
	Meta       JobMeta                `json:"meta"`
}
