// Package pipeline runs one generation request end to end: fetch every
// source, extract and decode its nodes, then merge across sources.
//
// Fetches run concurrently up to a bounded limit. Each source writes into its
// own result slot and the slots are merged in declaration order after all
// fetches finish, so completion order never changes the output.
package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/clashgen/clashgen/internal/extract"
	"github.com/clashgen/clashgen/internal/fetch"
	"github.com/clashgen/clashgen/internal/merge"
	"github.com/clashgen/clashgen/internal/model"
)

type Options struct {
	Concurrency int // default 4
	Fetch       fetch.Options
	Logger      *logrus.Logger
}

// Outcome carries the merged node set plus the complete per-source and
// per-link report for the caller to display.
type Outcome struct {
	Nodes  []model.CanonicalNode
	Report model.Report
}

type slot struct {
	report model.SourceReport
	nodes  []model.CanonicalNode
}

// Run resolves all sources and returns the merged nodes. Per-source failures
// are collected into the report, never propagated; only cancellation aborts
// the run, discarding partial results.
func Run(ctx context.Context, sources []model.SubscriptionSource, opt Options) (*Outcome, error) {
	if opt.Concurrency <= 0 {
		opt.Concurrency = 4
	}
	log := opt.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	slots := make([]slot, len(sources))
	sem := make(chan struct{}, opt.Concurrency)
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src model.SubscriptionSource) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			slots[i] = resolveSource(ctx, src, opt.Fetch, log)
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []model.CanonicalNode
	var report model.Report
	for _, s := range slots {
		report.Add(s.report)
		all = append(all, s.nodes...)
	}
	merged := merge.Merge(all)
	report.TotalMerged = len(merged)

	log.WithFields(logrus.Fields{
		"sources":    len(sources),
		"candidates": report.TotalCandidates,
		"decoded":    report.TotalDecoded,
		"merged":     report.TotalMerged,
	}).Info("generation pipeline finished")

	return &Outcome{Nodes: merged, Report: report}, nil
}

func resolveSource(ctx context.Context, src model.SubscriptionSource, fopt fetch.Options, log *logrus.Logger) slot {
	tag := src.EffectiveTag()
	sr := model.SourceReport{Source: tag}

	raw, err := fetch.Fetch(ctx, src, fopt)
	if err != nil {
		sr.FetchError = fetchCode(err)
		log.WithFields(logrus.Fields{
			"source": tag,
			"reason": sr.FetchError,
		}).Warn("source fetch failed, skipping")
		return slot{report: sr}
	}

	res := extract.Extract(raw, tag)
	sr.Candidates = res.Candidates
	sr.Decoded = len(res.Nodes)
	sr.Skipped = res.Skipped
	if res.Unrecognized {
		sr.Skipped = append(sr.Skipped, model.SkippedLink{
			Source: tag,
			Reason: model.CodeUnrecognizedFormat,
		})
		log.WithField("source", tag).Warn("source content matched no known format")
	}
	log.WithFields(logrus.Fields{
		"source":     tag,
		"candidates": sr.Candidates,
		"decoded":    sr.Decoded,
		"skipped":    len(sr.Skipped),
	}).Info("source resolved")
	return slot{report: sr, nodes: res.Nodes}
}

func fetchCode(err error) string {
	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		return fe.AppError.Code
	}
	return model.CodeFetchFailed
}
