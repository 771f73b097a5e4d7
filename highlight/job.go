package highlight

import (
	"fmt"

	"github.com/e4code/e4/grammars"
)

// DefaultBatchLines bounds how many lines one background job covers.
const DefaultBatchLines = 256

// Job is an immutable snapshot of a run of dirty lines, enough for a worker
// to tokenize them without touching the document.
type Job struct {
	Owner   string
	Grammar grammars.Grammar
	Start   int
	In      grammars.LineState
	Lines   []string
	Revs    []uint64
}

// LineResult is the tokenizer output for one line of a job.
type LineResult struct {
	Tokens []grammars.Token
	Out    grammars.LineState
}

// Result is a finished job.
type Result struct {
	Job   Job
	Lines []LineResult
}

// NextJob snapshots the first run of contiguous dirty lines, at most
// maxLines long. ok is false when nothing is dirty.
func (c *Cache) NextJob(src LineSource, maxLines int) (job Job, ok bool) {
	if maxLines <= 0 {
		maxLines = DefaultBatchLines
	}
	first := c.firstDirty()
	if first < 0 {
		return Job{}, false
	}
	job = Job{Grammar: c.grammar, Start: first, In: c.stateBefore(first)}
	for line := first; line < len(c.lines) && len(job.Lines) < maxLines && c.lines[line].dirty; line++ {
		text, err := src.LineAt(line)
		if err != nil {
			break
		}
		job.Lines = append(job.Lines, text)
		job.Revs = append(job.Revs, c.lines[line].rev)
	}
	if len(job.Lines) == 0 {
		return Job{}, false
	}
	return job, true
}

// Run tokenizes a job. It is a pure function and safe to call from any
// goroutine.
func Run(job Job) Result {
	res := Result{Job: job, Lines: make([]LineResult, len(job.Lines))}
	state := job.In
	for i, text := range job.Lines {
		toks, out := grammars.Tokenize(job.Grammar, text, state)
		res.Lines[i] = LineResult{Tokens: toks, Out: out}
		state = out
	}
	return res
}

// Apply stores a finished job's output. It returns ErrStaleResult, storing
// nothing, when any targeted line was edited after the job was taken or the
// state flowing into the first line has changed.
func (c *Cache) Apply(res Result) ([]int, error) {
	job := res.Job
	if job.Grammar != c.grammar {
		return nil, fmt.Errorf("grammar changed: %w", ErrStaleResult)
	}
	if job.Start+len(job.Lines) > len(c.lines) || len(res.Lines) != len(job.Lines) {
		return nil, fmt.Errorf("lines %d+%d: %w", job.Start, len(job.Lines), ErrStaleResult)
	}
	for i, rev := range job.Revs {
		if c.lines[job.Start+i].rev != rev {
			return nil, fmt.Errorf("line %d edited: %w", job.Start+i, ErrStaleResult)
		}
	}
	if job.Start > 0 {
		prev := c.lines[job.Start-1]
		if prev.dirty || !prev.valid || prev.out != job.In {
			return nil, fmt.Errorf("state into line %d changed: %w", job.Start, ErrStaleResult)
		}
	} else if job.In != grammars.Initial {
		return nil, fmt.Errorf("state into line 0: %w", ErrStaleResult)
	}

	applied := make([]int, 0, len(res.Lines))
	in := job.In
	for i, lr := range res.Lines {
		line := job.Start + i
		c.store(line, in, lr.Tokens, lr.Out)
		in = lr.Out
		applied = append(applied, line)
	}
	return applied, nil
}
