package transfer

import (
	"context"
	"io"
	"sync/atomic"
)

// Progress counts transferred bytes. It is written by the transfer goroutine
// and polled by the UI.
type Progress struct {
	total int64
	done  atomic.Int64
}

func NewProgress(total int64) *Progress {
	return &Progress{total: total}
}

func (p *Progress) Add(n int64) {
	if p == nil {
		return
	}
	p.done.Add(n)
}

func (p *Progress) Done() int64 {
	if p == nil {
		return 0
	}
	return p.done.Load()
}

func (p *Progress) Total() int64 {
	if p == nil {
		return 0
	}
	return p.total
}

// Fraction is in [0, 1]; an unknown total reports 0.
func (p *Progress) Fraction() float64 {
	if p == nil || p.total <= 0 {
		return 0
	}
	f := float64(p.Done()) / float64(p.total)
	if f > 1 {
		return 1
	}
	return f
}

// countingReader and countingWriter stop with ctx.Err() once ctx is done.
type countingReader struct {
	ctx      context.Context
	r        io.Reader
	progress *Progress
}

func (c *countingReader) Read(b []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(b)
	c.progress.Add(int64(n))
	return n, err
}

type countingWriter struct {
	ctx      context.Context
	w        io.Writer
	progress *Progress
}

func (c *countingWriter) Write(b []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.w.Write(b)
	c.progress.Add(int64(n))
	return n, err
}
