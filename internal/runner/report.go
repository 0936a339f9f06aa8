package runner

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Markers written by the kernel test harness and panic policy.
const (
	markerRunning = "Running "
	markerTests   = " tests"
	markerPending = "...\t"
	markerOK      = "[ok]"
	markerFailed  = "[failed]"
	markerError   = "Error: "
	markerAt      = "  at "
)

// TestResult describes the outcome of a single kernel test.
type TestResult struct {
	Name   string
	Passed bool
	Error  string
}

// Report summarizes the harness output of a test run.
type Report struct {
	// Total is the test count announced by the harness, or -1 if the
	// harness never started.
	Total  int
	Passed int
	Failed int
	Tests  []TestResult
}

// Incomplete returns true if the harness never announced a test count or
// fewer tests reported a result than announced.
func (r *Report) Incomplete() bool {
	return r.Total < 0 || r.Passed+r.Failed < r.Total
}

// Parser turns serial console lines into a Report.
type Parser struct {
	report Report

	// pending is the name of the test that has started but not yet
	// reported a status. Test output may appear in between.
	pending string

	// failed points at the last failed test while its error details are
	// still being read.
	failed *TestResult

	// OnTotal is invoked when the harness announces the test count.
	OnTotal func(total int)

	// OnResult is invoked for each completed test.
	OnResult func(TestResult)
}

// NewParser returns a parser with an empty report.
func NewParser() *Parser {
	return &Parser{report: Report{Total: -1}}
}

// Feed processes a single line of serial output. Terminal escape sequences
// and carriage returns are ignored.
func (p *Parser) Feed(line string) {
	line = strings.TrimRight(ansi.Strip(line), "\r\n")

	if p.failed != nil {
		switch {
		case strings.HasPrefix(line, markerError):
			p.failed.Error = strings.TrimPrefix(line, markerError)
			return
		case strings.HasPrefix(line, markerAt) && p.failed.Error != "":
			p.failed.Error += " (" + strings.TrimPrefix(line, markerAt) + ")"
			return
		case line == "":
			return
		}

		p.finishFailure()
	}

	if strings.HasPrefix(line, markerRunning) && strings.HasSuffix(line, markerTests) {
		count := strings.TrimSuffix(strings.TrimPrefix(line, markerRunning), markerTests)
		if total, err := strconv.Atoi(count); err == nil {
			p.report.Total = total
			if p.OnTotal != nil {
				p.OnTotal(total)
			}
		}
		return
	}

	if idx := strings.LastIndex(line, markerPending); idx >= 0 {
		p.pending, line = line[:idx], line[idx+len(markerPending):]
	}

	if p.pending == "" {
		return
	}

	switch {
	case strings.HasSuffix(line, markerOK):
		p.record(TestResult{Name: p.pending, Passed: true})
		p.pending = ""
	case strings.HasSuffix(line, markerFailed):
		p.failed = &TestResult{Name: p.pending}
		p.pending = ""
	}
}

// Close flushes a pending failure. It must be called once the serial stream
// ends.
func (p *Parser) Close() {
	if p.failed != nil {
		p.finishFailure()
	}
}

// Report returns the report built so far.
func (p *Parser) Report() Report {
	return p.report
}

func (p *Parser) finishFailure() {
	res := *p.failed
	p.failed = nil
	if res.Error == "" {
		res.Error = "unknown cause"
	}
	p.record(res)
}

func (p *Parser) record(res TestResult) {
	if res.Passed {
		p.report.Passed++
	} else {
		p.report.Failed++
	}
	p.report.Tests = append(p.report.Tests, res)

	if p.OnResult != nil {
		p.OnResult(res)
	}
}
