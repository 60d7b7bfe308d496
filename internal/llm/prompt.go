package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
)

// SystemPrompt frames every call: one JSON document, no prose.
var SystemPrompt = strings.Join([]string{
	"You are a meticulous bank-statement parser.",
	"Extract every transaction line from the statement pages you are given and return ONLY JSON that matches the schema.",
	"Do not add commentary, markdown or code fences.",
	"If a page has no transactions, return that page with an empty transactions array.",
}, " ")

// SchemaHint describes the expected output shape in the prompt itself.
const SchemaHint = `[
  {
    "page_index": <int, the page number shown in the PAGE header>,
    "transactions": [
      {
        "date": "<transaction date as printed>",
        "value_date": "<value date or null>",
        "description": "<narration>",
        "channel": "<channel or null>",
        "doc_no": "<reference or null>",
        "amount": <positive number, no currency symbol, no thousands separators>,
        "currency": "<ISO code or null>",
        "type": "credit" | "debit"
      }
    ],
    "page_credit_sum": <number or null>,
    "page_debit_sum": <number or null>,
    "document_totals": {"total_credit_reported": <number or null>}
  }
]`

// RepairInstruction is the follow-up turn sent after an invalid response.
const RepairInstruction = "Your previous response was not valid JSON. " +
	"Respond again with VALID JSON ONLY that matches the schema. " +
	"If no transactions are present, return an empty array []."

var extractionRules = []string{
	"Rules:",
	"- amount is always positive; the direction goes in type (money in = credit, money out = debit).",
	"- Use the Credit/Debit (or Deposit/Withdrawal) column to decide type; never infer it from the running balance.",
	"- Skip opening/closing balance rows, brought-forward lines and page subtotals.",
	"- Copy dates exactly as printed.",
	"- page_credit_sum and document_totals are only what the page prints; leave them null otherwise.",
}

// BuildPrompt renders a chunk as labelled page blocks, in page order, under the extraction rules.
func BuildPrompt(chunk entity.Chunk) string {
	blocks := make([]string, 0, len(chunk.Pages))
	for _, p := range chunk.Pages {
		blocks = append(blocks, fmt.Sprintf("--- PAGE %d ---\n%s", p.Index, p.Text))
	}
	var b strings.Builder
	b.WriteString("Return a JSON array with one object per page, shaped like this:\n")
	b.WriteString(SchemaHint)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(extractionRules, "\n"))
	b.WriteString("\n\nStatement pages:\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	return b.String()
}

// InitialMessages is the conversation for a first call.
func InitialMessages(prompt string) []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: prompt},
	}
}

// RepairMessages replays the first exchange and appends the repair instruction.
func RepairMessages(prompt, previous string) []ChatMessage {
	return append(InitialMessages(prompt),
		ChatMessage{Role: RoleAssistant, Content: previous},
		ChatMessage{Role: RoleUser, Content: RepairInstruction},
	)
}
