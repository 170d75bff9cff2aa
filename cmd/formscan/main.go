package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/Donskoy-Andrey/Documents-Parser/internal/config"
	ferrors "github.com/Donskoy-Andrey/Documents-Parser/internal/errors"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/forms"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/logging"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/processor"
	"github.com/Donskoy-Andrey/Documents-Parser/internal/queue"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// Exit codes.
const (
	exitOK         = 0
	exitInvalid    = 1
	exitStructural = 2
	exitFailure    = 3
)

type options struct {
	form      string
	committee bool
	output    string
	submit    bool
	wait      bool
	envFile   string
	version   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	v := config.New()
	fs := pflag.NewFlagSet("formscan", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.form, "form", string(forms.KindFMU76), "Form kind: m11 or fmu76")
	fs.BoolVar(&opts.committee, "committee", false, "Extract the committee block of ФМУ-76")
	fs.StringVarP(&opts.output, "output", "o", "text", "Output format: text, json or yaml")
	fs.BoolVar(&opts.submit, "submit", false, "Enqueue the document for the worker instead of processing it here")
	fs.BoolVar(&opts.wait, "wait", false, "With --submit, wait for the job and print its result")
	fs.StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before reading configuration")
	fs.BoolVarP(&opts.version, "version", "v", false, "Print version information")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: formscan [flags] [file.pdf]\n\n")
		fs.PrintDefaults()
	}
	if err := config.BindFlags(v, fs); err != nil {
		fmt.Fprintf(stderr, "formscan: %v\n", err)
		return exitFailure
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitInvalid
	}

	if opts.version {
		printVersion(stdout)
		return exitOK
	}

	switch opts.output {
	case "text", "json", "yaml":
	default:
		fmt.Fprintf(stderr, "formscan: unknown output format %q\n", opts.output)
		return exitInvalid
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "formscan: expected at most one file, got %d\n", fs.NArg())
		return exitInvalid
	}
	path := fs.Arg(0)

	kind, err := forms.ParseKind(opts.form)
	if err != nil {
		fmt.Fprintf(stderr, "formscan: %v\n", err)
		return exitInvalid
	}

	cfg, err := config.Load(v, opts.envFile)
	if err != nil {
		fmt.Fprintf(stderr, "formscan: %v\n", err)
		return exitFailure
	}
	log := logging.NewLoggerTo(stderr, "formscan", logging.ParseLevel(cfg.LogLevel))

	if opts.submit {
		return submit(ctx, cfg, log, path, kind, opts, stdout, stderr)
	}

	proc, err := processor.NewFromConfig(cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "formscan: %v\n", err)
		return exitFailure
	}
	res, err := proc.Process(ctx, path, kind, processor.Options{Committee: opts.committee})
	if err != nil {
		fmt.Fprintf(stderr, "formscan: %v\n", err)
		return exitCode(err)
	}
	if err := render(stdout, res, opts.output); err != nil {
		fmt.Fprintf(stderr, "formscan: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case ferrors.IsInvalidInput(err):
		return exitInvalid
	case ferrors.IsStructural(err):
		return exitStructural
	}
	return exitFailure
}

func submit(ctx context.Context, cfg *config.Config, log *logging.Logger, path string, kind forms.Kind, opts options, stdout, stderr io.Writer) int {
	if path == "" {
		fmt.Fprintf(stderr, "formscan: no input file given\n")
		return exitInvalid
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "formscan: %v\n", err)
		return exitInvalid
	}

	sub, err := queue.NewSubmitter(cfg.RedisURL, cfg.QueueName)
	if err != nil {
		fmt.Fprintf(stderr, "formscan: %v\n", err)
		return exitFailure
	}
	defer sub.Close()

	var watcher *queue.Watcher
	if opts.wait {
		events, err := queue.NewRedisEvents(ctx, cfg.RedisURL, cfg.QueueName, log)
		if err != nil {
			fmt.Fprintf(stderr, "formscan: %v\n", err)
			return exitFailure
		}
		defer events.Close()
		if watcher, err = events.Watch(ctx); err != nil {
			fmt.Fprintf(stderr, "formscan: %v\n", err)
			return exitFailure
		}
		defer watcher.Close()
	}

	jobID, err := sub.Submit(ctx, &queue.JobPayload{
		Filename:   path,
		FileBuffer: data,
		Form:       string(kind),
		Committee:  opts.committee,
	})
	if err != nil {
		fmt.Fprintf(stderr, "formscan: %v\n", err)
		return exitFailure
	}
	log.Info("Job submitted", "job", jobID, "queue", cfg.QueueName)

	if watcher == nil {
		fmt.Fprintln(stdout, jobID)
		return exitOK
	}

	ev, err := watcher.Wait(ctx, jobID)
	if err != nil {
		fmt.Fprintf(stderr, "formscan: %v\n", err)
		return exitFailure
	}
	if ev.Status() == queue.StatusFailed {
		fmt.Fprintf(stderr, "formscan: job %s failed: %v\n", jobID, ev.Details["message"])
		code, _ := ev.Details["error_code"].(string)
		return exitCode(&ferrors.ProcessingError{Code: ferrors.ErrorCode(code)})
	}

	result, err := sub.Result(ctx, jobID)
	if err != nil {
		fmt.Fprintf(stderr, "formscan: %v\n", err)
		return exitFailure
	}
	fmt.Fprintln(stdout, string(result))
	return exitOK
}

func render(w io.Writer, res *processor.Result, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(res)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Form: %s\nDocument: %s\n\n", res.Form, res.DocumentID)
	for _, f := range res.Report.Fields() {
		value := f.Value
		if f.Null {
			value = "<null>"
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Name, value)
	}
	for _, t := range res.Tables {
		if t == nil {
			continue
		}
		fmt.Fprintf(&b, "\n[%s]\n%s\n", t.Role(), t.String())
	}
	if res.Fallback {
		b.WriteString("\nNote: a single table was found and reused for both slots\n")
	}

	if res.Outcome.Accepted {
		b.WriteString("\nACCEPTED\n")
	} else {
		fmt.Fprintf(&b, "\nREJECTED (%d issues)\n", len(res.Outcome.Locations))
		for i, loc := range res.Outcome.Locations {
			fmt.Fprintf(&b, "  %s: %s\n", loc, res.Outcome.Reasons[i])
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "formscan\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
