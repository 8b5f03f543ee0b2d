// Package process runs the per-line pipeline: parse, filter, resolve, render
// and emit. Lines are handled one at a time in arrival order and nothing is
// buffered between them.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/five82/fblog/internal/diag"
	"github.com/five82/fblog/internal/emit"
	"github.com/five82/fblog/internal/filter"
	"github.com/five82/fblog/internal/record"
	"github.com/five82/fblog/internal/render"
	"github.com/five82/fblog/internal/resolve"
)

// Components are the pipeline stages. Filter and Log may be nil.
type Components struct {
	SplitPrefix bool
	Filter      filter.Predicate
	Resolver    *resolve.Resolver
	Renderer    *render.Renderer
	Emitter     *emit.Emitter
	Log         logrus.FieldLogger
}

// Processor owns one run of the pipeline.
type Processor struct {
	splitPrefix bool
	filter      filter.Predicate
	resolver    *resolve.Resolver
	renderer    *render.Renderer
	out         *emit.Emitter
	log         logrus.FieldLogger
	line        int
}

// New assembles a Processor.
func New(c Components) *Processor {
	p := &Processor{
		splitPrefix: c.SplitPrefix,
		filter:      c.Filter,
		resolver:    c.Resolver,
		renderer:    c.Renderer,
		out:         c.Emitter,
		log:         c.Log,
	}
	if p.filter == nil {
		p.filter = filter.KeepAll()
	}
	if p.log == nil {
		p.log = diag.Discard()
	}
	return p
}

// ProcessLine handles one raw input line. Problems with the line itself are
// reported to the diagnostic log; only output errors are returned.
func (p *Processor) ProcessLine(raw string) error {
	p.line++
	line := record.Parse(raw, p.splitPrefix)
	if line.Fallback() {
		return p.out.Line(line.Raw)
	}

	keep, err := p.filter.Evaluate(line.Record)
	if err != nil {
		p.log.WithField("line", p.line).WithError(err).Warn("filter failed, line dropped")
		return nil
	}
	if !keep {
		return nil
	}

	text, err := p.renderer.Render(p.resolver.Resolve(line))
	if err != nil {
		p.log.WithField("line", p.line).WithError(err).Warn("render failed, printing raw line")
		return p.out.Line(line.Raw)
	}
	return p.out.Line(text)
}

// Run processes r until end of input, until the output is closed, or until
// ctx is cancelled. Cancellation is observed between lines; a read that fails
// after cancellation counts as end of input.
func (p *Processor) Run(ctx context.Context, r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		if ctx.Err() != nil {
			return nil
		}
		raw, readErr := br.ReadString('\n')
		if raw != "" {
			if err := p.ProcessLine(raw); err != nil {
				if errors.Is(err, emit.ErrClosed) {
					return nil
				}
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read input: %w", readErr)
		}
	}
}

// Lines reports how many input lines have been seen.
func (p *Processor) Lines() int { return p.line }
