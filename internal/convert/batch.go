package convert

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanglvm/promptstruct/internal/provider"
)

// BatchItem is the outcome for one prompt of a batch.
type BatchItem struct {
	Index   int     `json:"index"`
	Prompt  string  `json:"prompt"`
	Success bool    `json:"success"`
	Result  *Result `json:"result,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Summary aggregates a batch.
type Summary struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Usage      provider.Usage `json:"usage"`
}

// BatchResult holds items in input order plus the summary.
type BatchResult struct {
	Results []BatchItem `json:"results"`
	Summary Summary     `json:"summary"`
}

// Batch converts prompts in waves of BatchSize, pausing BatchDelay between
// waves. Per-prompt failures are reported in their item. Only an empty list
// or a cancelled context fails the call.
func (c *Converter) Batch(ctx context.Context, prompts []string, schema string) (BatchResult, error) {
	if len(prompts) == 0 {
		return BatchResult{}, ErrNoPrompts
	}

	items := make([]BatchItem, len(prompts))
	size := c.opts.BatchSize

	for start := 0; start < len(prompts); start += size {
		end := min(start+size, len(prompts))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(size)
		for idx := start; idx < end; idx++ {
			g.Go(func() error {
				items[idx] = c.batchItem(gctx, idx, prompts[idx], schema)
				return nil
			})
		}
		_ = g.Wait()

		if end < len(prompts) {
			if err := c.sleep(ctx, c.opts.BatchDelay); err != nil {
				return BatchResult{}, err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}

	out := BatchResult{Results: items, Summary: Summary{Total: len(items)}}
	for _, item := range items {
		if item.Success {
			out.Summary.Successful++
		}
		if item.Result != nil {
			out.Summary.Usage = out.Summary.Usage.Add(item.Result.Usage)
		}
	}
	out.Summary.Failed = out.Summary.Total - out.Summary.Successful

	c.logger.Info("batch conversion finished",
		zap.Int("total", out.Summary.Total),
		zap.Int("successful", out.Summary.Successful),
		zap.Int("failed", out.Summary.Failed),
	)
	return out, nil
}

func (c *Converter) batchItem(ctx context.Context, idx int, p, schema string) BatchItem {
	item := BatchItem{Index: idx, Prompt: p}

	res, err := c.convert(ctx, p, schema)
	if err != nil {
		item.Error = err.Error()
		return item
	}

	item.Result = &res
	item.Success = res.Valid
	if !res.Valid {
		item.Error = res.ParseError
	}
	return item
}
