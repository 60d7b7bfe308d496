package entity

// TxType is the direction of a statement line.
type TxType string

const (
	TxCredit TxType = "credit"
	TxDebit  TxType = "debit"
)

// PageText is one page of extracted statement text. Index is 0-based.
type PageText struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// PagesFromTexts numbers raw page strings in order.
func PagesFromTexts(texts []string) []PageText {
	pages := make([]PageText, len(texts))
	for i, t := range texts {
		pages[i] = PageText{Index: i, Text: t}
	}
	return pages
}

// Chunk is a contiguous run of pages sent to the models together.
type Chunk struct {
	Pages []PageText `json:"pages"`
}

// Indices returns the page indices covered by the chunk, in order.
func (c Chunk) Indices() []int {
	out := make([]int, len(c.Pages))
	for i, p := range c.Pages {
		out[i] = p.Index
	}
	return out
}

// Map returns page index -> text.
func (c Chunk) Map() map[int]string {
	out := make(map[int]string, len(c.Pages))
	for _, p := range c.Pages {
		out[p.Index] = p.Text
	}
	return out
}

// Transaction is a single statement line as returned by a model.
// Amount is always non-negative; direction lives in Type.
type Transaction struct {
	Date        string  `json:"date"`
	ValueDate   *string `json:"value_date,omitempty"`
	Description string  `json:"description"`
	Channel     *string `json:"channel,omitempty"`
	DocNo       *string `json:"doc_no,omitempty"`
	Amount      float64 `json:"amount"`
	Currency    *string `json:"currency,omitempty"`
	Type        TxType  `json:"type"`
}

// DocumentTotals carries grand totals a model read off the statement, if any.
type DocumentTotals struct {
	TotalCreditReported *float64 `json:"total_credit_reported,omitempty"`
}

// PageExtraction is one page's worth of transactions.
// PageIndex is -1 when the model returned transactions without saying which page.
type PageExtraction struct {
	PageIndex      int             `json:"page_index"`
	Transactions   []Transaction   `json:"transactions"`
	PageCreditSum  *float64        `json:"page_credit_sum,omitempty"`
	PageDebitSum   *float64        `json:"page_debit_sum,omitempty"`
	DocumentTotals *DocumentTotals `json:"document_totals,omitempty"`
}

// UnknownPageIndex marks a page the model did not label.
const UnknownPageIndex = -1
