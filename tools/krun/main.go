// Command krun boots a kernel image under QEMU. With -test it runs the
// kernel test harness and exits with status 0 if every test passed and 1
// otherwise.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/seonWKim/blog-os/internal/runner"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBold  = "\033[1m"
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[krun] error: %s\n", err.Error())
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "krun.yaml", "Path to the run configuration")
	image := flag.String("image", "", "Kernel ISO image (overrides the config file)")
	qemu := flag.String("qemu", "", "QEMU binary (overrides the config file)")
	test := flag.Bool("test", false, "Run the kernel test harness")
	timeout := flag.Duration("timeout", 0, "Run timeout (overrides the config file)")
	verbose := flag.Bool("v", false, "Relay serial output even when showing progress")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		exit(err)
	}

	if *image != "" {
		cfg.Image = *image
	}
	if *qemu != "" {
		cfg.QEMU = *qemu
	}
	if *test {
		cfg.Test = true
	}
	if *timeout != 0 {
		cfg.Timeout = runner.Duration(*timeout)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	r := runner.NewRunner(*cfg)
	r.Serial = os.Stdout
	r.Stderr = os.Stderr

	var bar *progressbar.ProgressBar
	if cfg.Test && term.IsTerminal(int(os.Stderr.Fd())) {
		if !*verbose {
			r.Serial = nil
		}

		r.OnTotal = func(total int) {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("kernel tests"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		r.OnResult = func(runner.TestResult) {
			if bar != nil {
				bar.Add(1)
			}
		}
	}

	res, err := r.Run(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		exit(err)
	}

	if cfg.Test {
		printResults(os.Stdout, res, term.IsTerminal(int(os.Stdout.Fd())))
	}

	if !res.Success {
		os.Exit(1)
	}
}

// loadConfig reads the config file at path. A missing file yields the
// defaults.
func loadConfig(path string) (*runner.Config, error) {
	cfg, err := runner.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		def := runner.DefaultConfig()
		return &def, nil
	}

	return cfg, err
}

func printResults(w io.Writer, res *runner.Result, color bool) {
	paint := func(code, text string) string {
		if !color {
			return text
		}
		return code + text + colorReset
	}

	fmt.Fprintln(w)
	for _, tr := range res.Report.Tests {
		if tr.Passed {
			fmt.Fprintf(w, "  %s %s\n", paint(colorGreen, "PASS"), tr.Name)
			continue
		}
		fmt.Fprintf(w, "  %s %s: %s\n", paint(colorRed, "FAIL"), tr.Name, tr.Error)
	}

	status := paint(colorGreen, "ok")
	if !res.Success {
		status = paint(colorRed, "FAILED")
	}

	total := res.Report.Total
	if total < 0 {
		total = 0
	}

	fmt.Fprintf(w, "\n%s %s: %d/%d passed, %d failed, qemu status %d",
		paint(colorBold, "kernel tests"), status, res.Report.Passed, total, res.Report.Failed, res.ExitStatus)
	if res.TimedOut {
		fmt.Fprint(w, ", timed out")
	}
	fmt.Fprintf(w, " (%s)\n", res.Duration.Round(time.Millisecond))
}
