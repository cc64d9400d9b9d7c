package report

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"llmperfbench/internal/benchmark"
	"llmperfbench/internal/types"
)

// ProgressReporter draws one progress bar per run, advancing as requests settle.
type ProgressReporter struct {
	benchmark.NopReporter

	out io.Writer
	bar *progressbar.ProgressBar
}

func NewProgressReporter(out io.Writer) *ProgressReporter {
	return &ProgressReporter{out: out}
}

func (p *ProgressReporter) RunStarted(tc types.TestCase, run, runs, requests int) {
	p.finish()
	p.bar = progressbar.NewOptions(requests,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(fmt.Sprintf("%d/%d tokens, run %d/%d", tc.InputTokens, tc.OutputTokens, run+1, runs)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("requests"),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *ProgressReporter) RequestSettled(tc types.TestCase, run int, err error) {
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *ProgressReporter) RunCompleted(types.BenchmarkResult) {
	p.finish()
}

func (p *ProgressReporter) RunFailed(types.TestCase, int, error) {
	p.finish()
}

func (p *ProgressReporter) finish() {
	if p.bar == nil {
		return
	}
	p.bar.Finish()
	p.bar.Clear()
	p.bar.Close()
	p.bar = nil
}
