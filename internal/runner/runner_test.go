package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// fakeQEMU returns a command factory that re-executes the test binary as a
// fake QEMU following the named scenario.
func fakeQEMU(scenario string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_SCENARIO="+scenario)
		return cmd
	}
}

// TestHelperProcess is not a real test; it emulates QEMU for the runner
// tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	cmdline := strings.Join(args, " ")

	switch os.Getenv("HELPER_SCENARIO") {
	case "pass":
		if !strings.Contains(cmdline, "isa-debug-exit,iobase=0xf4,iosize=0x04") {
			fmt.Fprintf(os.Stderr, "missing exit device: %s\n", cmdline)
			os.Exit(1)
		}
		fmt.Print("\x1b[2J\x1b[01;01HSeaBIOS (version 1.16.3)\r\n")
		fmt.Print("Running 2 tests\n")
		fmt.Print("kmain::trivial_assertion...\t[ok]\n")
		fmt.Print("kmain::println_simple...\t[ok]\n")
		fmt.Fprint(os.Stderr, "qemu: terminating on signal\n")
		os.Exit(0x10<<1 | 1)
	case "fail":
		fmt.Print("Running 3 tests\n")
		fmt.Print("kmain::trivial_assertion...\t[ok]\n")
		fmt.Print("kmain::println_output...\t[failed]\n\n")
		fmt.Print("Error: [selftest] printed line not found in the framebuffer\n\n")
		os.Exit(0x11<<1 | 1)
	case "interleaved":
		fmt.Print("Running 2 tests\n")
		fmt.Print("kmain::trivial_assertion...\t[ok]\n")
		fmt.Print("kmain::println_simple...\ttest_println_simple output\n")
		fmt.Print("[ok]\n")
		os.Exit(0x10<<1 | 1)
	case "truncated":
		fmt.Print("Running 3 tests\n")
		fmt.Print("kmain::trivial_assertion...\t[ok]\n")
		os.Exit(0x10<<1 | 1)
	case "hang":
		fmt.Print("Running 1 tests\n")
		fmt.Print("kmain::hang...\t")
		time.Sleep(time.Minute)
	case "boot":
		fmt.Print("Hello World!\n")
		os.Exit(0)
	}

	os.Exit(2)
}

func newTestRunner(test bool, scenario string, timeout time.Duration) (*Runner, *bytes.Buffer, *bytes.Buffer) {
	cfg := DefaultConfig()
	cfg.Image = "kernel.iso"
	cfg.Test = test
	cfg.Timeout = Duration(timeout)

	var serial, stderr bytes.Buffer
	r := NewRunner(cfg)
	r.Serial = &serial
	r.Stderr = &stderr
	r.command = fakeQEMU(scenario)

	return r, &serial, &stderr
}

func TestRunPass(t *testing.T) {
	r, serial, stderr := newTestRunner(true, "pass", 30*time.Second)

	var (
		total   int
		results []string
	)
	r.OnTotal = func(n int) { total = n }
	r.OnResult = func(res TestResult) { results = append(results, res.Name) }

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !res.Success {
		t.Fatalf("expected run to succeed; got %+v (stderr: %s)", res, stderr.String())
	}

	if res.ExitStatus != 33 {
		t.Errorf("ExitStatus = %d, want 33", res.ExitStatus)
	}

	if res.Report.Total != 2 || res.Report.Passed != 2 || res.Report.Failed != 0 {
		t.Errorf("unexpected report: %+v", res.Report)
	}

	if total != 2 || len(results) != 2 {
		t.Errorf("expected callbacks for 2 tests; got total=%d results=%v", total, results)
	}

	if !strings.Contains(serial.String(), "kmain::println_simple...\t[ok]") {
		t.Errorf("expected serial output to be relayed; got %q", serial.String())
	}

	if !strings.Contains(stderr.String(), "terminating on signal") {
		t.Errorf("expected qemu stderr to be relayed; got %q", stderr.String())
	}
}

func TestRunFail(t *testing.T) {
	r, _, _ := newTestRunner(true, "fail", 30*time.Second)

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Success {
		t.Fatal("expected run to fail")
	}

	if res.ExitStatus != 35 {
		t.Errorf("ExitStatus = %d, want 35", res.ExitStatus)
	}

	if res.Report.Passed != 1 || res.Report.Failed != 1 || !res.Report.Incomplete() {
		t.Errorf("unexpected report: %+v", res.Report)
	}

	failed := res.Report.Tests[1]
	if failed.Name != "kmain::println_output" || failed.Passed {
		t.Errorf("unexpected failed test: %+v", failed)
	}

	if exp := "[selftest] printed line not found in the framebuffer"; failed.Error != exp {
		t.Errorf("Error = %q, want %q", failed.Error, exp)
	}
}

func TestRunInterleavedOutput(t *testing.T) {
	r, _, _ := newTestRunner(true, "interleaved", 30*time.Second)

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !res.Success {
		t.Fatalf("expected run to succeed; got %+v", res)
	}

	if res.Report.Total != 2 || res.Report.Passed != 2 || res.Report.Incomplete() {
		t.Errorf("unexpected report: %+v", res.Report)
	}
}

func TestRunIncompleteReport(t *testing.T) {
	r, _, _ := newTestRunner(true, "truncated", 30*time.Second)

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.ExitStatus != 33 {
		t.Errorf("ExitStatus = %d, want 33", res.ExitStatus)
	}

	if res.Success {
		t.Fatalf("expected a run with missing results to fail; got %+v", res.Report)
	}
}

func TestRunTimeout(t *testing.T) {
	r, _, _ := newTestRunner(true, "hang", 500*time.Millisecond)

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !res.TimedOut || res.Success {
		t.Fatalf("expected a failed run due to timeout; got %+v", res)
	}

	if res.Report.Total != 1 || !res.Report.Incomplete() {
		t.Errorf("unexpected report: %+v", res.Report)
	}
}

func TestRunNormalMode(t *testing.T) {
	r, serial, _ := newTestRunner(false, "boot", 30*time.Second)

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !res.Success {
		t.Fatalf("expected a clean boot to succeed; got %+v", res)
	}

	if serial.String() != "Hello World!\n" {
		t.Errorf("serial = %q, want %q", serial.String(), "Hello World!\n")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	r := NewRunner(DefaultConfig())

	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected an error for a config without an image")
	}
}
