package runner

import (
	"strings"
	"testing"
)

func feedAll(p *Parser, output string) {
	for _, line := range strings.Split(output, "\n") {
		p.Feed(line)
	}
	p.Close()
}

func TestParserAllPass(t *testing.T) {
	p := NewParser()
	feedAll(p, "[hal] uart16550(0.1.0): initialized\n"+
		"Running 3 tests\n"+
		"a...\t[ok]\n"+
		"b...\t[ok]\n"+
		"c...\t[ok]\n")

	r := p.Report()
	if r.Total != 3 || r.Passed != 3 || r.Failed != 0 || r.Incomplete() {
		t.Fatalf("unexpected report: %+v", r)
	}

	for i, exp := range []string{"a", "b", "c"} {
		if r.Tests[i].Name != exp || !r.Tests[i].Passed {
			t.Errorf("Tests[%d] = %+v, want passing test %q", i, r.Tests[i], exp)
		}
	}
}

func TestParserInterleavedTestOutput(t *testing.T) {
	specs := []struct {
		output    string
		expPassed int
		expFailed int
	}{
		{
			"Running 2 tests\na...\t[ok]\nb...\ttest_println_simple output\n[ok]\n",
			2, 0,
		},
		{
			"Running 2 tests\na...\tline 1\nline 2\nline 3[ok]\nb...\t[ok]\n",
			2, 0,
		},
		{
			"Running 1 tests\na...\tpartial output\n[failed]\n\nError: [kmain] boom\n",
			0, 1,
		},
		{
			"Running 2 tests\na...\t[ok]\nb...\tpartial output\n",
			1, 0,
		},
	}

	for specIndex, spec := range specs {
		p := NewParser()
		feedAll(p, spec.output)

		r := p.Report()
		if r.Passed != spec.expPassed || r.Failed != spec.expFailed {
			t.Errorf("[spec %d] expected %d passed and %d failed; got %+v", specIndex, spec.expPassed, spec.expFailed, r)
			continue
		}

		if exp := spec.expPassed+spec.expFailed < r.Total; r.Incomplete() != exp {
			t.Errorf("[spec %d] expected Incomplete() to return %t", specIndex, exp)
		}

		for i, res := range r.Tests {
			if exp := string(rune('a' + i)); res.Name != exp {
				t.Errorf("[spec %d] Tests[%d].Name = %q, want %q", specIndex, i, res.Name, exp)
			}
		}
	}
}

func TestParserFailure(t *testing.T) {
	specs := []struct {
		name   string
		output string
		expErr string
	}{
		{
			"with location",
			"Running 2 tests\na...\t[ok]\nb...\t[failed]\n\nError: [kmain] boom\n  at kmain.go:42\n\n",
			"[kmain] boom (kmain.go:42)",
		},
		{
			"unknown cause",
			"Running 2 tests\na...\t[ok]\nb...\t[failed]\n\nError: unknown cause\n\n",
			"unknown cause",
		},
		{
			"truncated",
			"Running 2 tests\na...\t[ok]\nb...\t[failed]",
			"unknown cause",
		},
		{
			"escape sequences",
			"\x1b[0mRunning 2 tests\r\na...\t[ok]\r\nb...\t\x1b[31m[failed]\x1b[0m\r\n\r\nError: [kmain] boom\r\n",
			"[kmain] boom",
		},
	}

	for specIndex, spec := range specs {
		var results []TestResult
		p := NewParser()
		p.OnResult = func(res TestResult) { results = append(results, res) }
		feedAll(p, spec.output)

		r := p.Report()
		if r.Total != 2 || r.Passed != 1 || r.Failed != 1 {
			t.Errorf("[spec %d] %s: unexpected report: %+v", specIndex, spec.name, r)
			continue
		}

		if len(results) != 2 || results[1].Name != "b" || results[1].Passed {
			t.Errorf("[spec %d] %s: unexpected results: %+v", specIndex, spec.name, results)
			continue
		}

		if results[1].Error != spec.expErr {
			t.Errorf("[spec %d] %s: Error = %q, want %q", specIndex, spec.name, results[1].Error, spec.expErr)
		}
	}
}

func TestParserNoHarness(t *testing.T) {
	p := NewParser()
	feedAll(p, "Hello World!\n[kmain] build mode: normal, cpu: GenuineIntel\n")

	r := p.Report()
	if r.Total != -1 || len(r.Tests) != 0 || !r.Incomplete() {
		t.Fatalf("unexpected report: %+v", r)
	}
}

func TestParserOnTotal(t *testing.T) {
	var total int
	p := NewParser()
	p.OnTotal = func(n int) { total = n }

	p.Feed("Running 12 tests")
	p.Feed("Running many tests")

	if total != 12 || p.Report().Total != 12 {
		t.Fatalf("expected total 12; got callback %d, report %d", total, p.Report().Total)
	}
}
