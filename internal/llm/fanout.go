package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Outcome is one model's answer to a fan-out call: either Text or Err is set.
type Outcome struct {
	Model   string
	Text    string
	Err     error
	Elapsed time.Duration
}

// Payload returns the raw text, or the serialized error marker on failure.
func (o Outcome) Payload() string {
	if o.Err != nil {
		return ErrorMarker(o.Err)
	}
	return o.Text
}

// FanOut calls every model with the same prompt concurrently and waits for all
// of them. A failing model never cancels the others; its error is captured in
// its Outcome.
func FanOut(ctx context.Context, client ModelClient, models []string, prompt string) map[string]Outcome {
	results := make([]Outcome, len(models))

	// A plain errgroup.Group, not WithContext: goroutines always return nil so one
	// model's failure can never cancel its siblings. Errors travel in the Outcome.
	var g errgroup.Group
	for i, m := range models {
		i, m := i, m
		g.Go(func() error {
			start := time.Now()
			defer func() {
				if r := recover(); r != nil {
					results[i] = Outcome{Model: m, Err: fmt.Errorf("model client panic: %v", r), Elapsed: time.Since(start)}
				}
			}()
			text, callErr := client.Call(ctx, m, prompt)
			results[i] = Outcome{Model: m, Text: text, Err: callErr, Elapsed: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait() // always nil, see above

	out := make(map[string]Outcome, len(models))
	for _, r := range results {
		out[r.Model] = r
	}
	return out
}
