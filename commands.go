package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bradenn/hwdemo/enclave"
	"github.com/bradenn/hwdemo/schemas"
	"github.com/bradenn/hwdemo/server"
	"github.com/bradenn/hwdemo/services"
	"github.com/bradenn/hwdemo/submission"
	"github.com/bradenn/hwdemo/waitlist"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Run(cmd.Context(), cfg, logger)
	},
}

var (
	generateEndpoint string
	specFile         string
	compareFile      string
	saveFile         string
)

var generateCmd = &cobra.Command{
	Use:   "generate [specification]",
	Short: "Generate RTL, a testbench and a simulation log from a hardware specification",
	Example: `  hwdemo generate "A 4-bit counter with synchronous reset and enable signal"
  hwdemo generate --spec-file counter.txt --save counter.json`,
	RunE: runGenerate,
}

var (
	compileEndpoint string
	modelName       string
	inputShape      string
	optLevel        string
	downloadDir     string
	repoURL         string
	repoCommit      string
)

var compileCmd = &cobra.Command{
	Use:   "compile [model.py]",
	Short: "Compile a Python model into an HLS package",
	Example: `  hwdemo compile resnet.py --input-shape 1x3x224x224 --opt-level O3 --download ./out
  hwdemo compile models/mlp.py --repo https://github.com/acme/models --commit 3d3c32a`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

var entry schemas.WaitlistEntry

var waitlistCmd = &cobra.Command{
	Use:   "waitlist",
	Short: "Join the waitlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		form := waitlist.NewForm(waitlist.NewClient(cfg.WaitlistEndpoint, cfg.HTTPTimeout, logger))
		if err := form.Submit(cmd.Context(), entry); err != nil {
			return userError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Thanks for joining the waitlist! We'll be in touch soon.")
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateEndpoint, "endpoint", "", "generation endpoint (defaults to GENERATE_ENDPOINT)")
	generateCmd.Flags().StringVar(&specFile, "spec-file", "", "read the specification from a file")
	generateCmd.Flags().StringVar(&compareFile, "compare", "", "diff the result against a result saved with --save")
	generateCmd.Flags().StringVar(&saveFile, "save", "", "save the result as JSON")

	compileCmd.Flags().StringVar(&compileEndpoint, "endpoint", "", "compilation endpoint (defaults to COMPILE_ENDPOINT)")
	compileCmd.Flags().StringVar(&modelName, "model-name", "", "model name")
	compileCmd.Flags().StringVar(&inputShape, "input-shape", "", "input shape, e.g. 1x3x224x224")
	compileCmd.Flags().StringVar(&optLevel, "opt-level", "", "optimization level, e.g. O2")
	compileCmd.Flags().StringVar(&downloadDir, "download", "", "download the package into this directory")
	compileCmd.Flags().StringVar(&repoURL, "repo", "", "read the model from this git repository")
	compileCmd.Flags().StringVar(&repoCommit, "commit", "", "check out this commit of --repo")

	waitlistCmd.Flags().StringVar(&entry.Name, "name", "", "your name")
	waitlistCmd.Flags().StringVar(&entry.Email, "email", "", "your email")
	waitlistCmd.Flags().StringVar(&entry.Company, "company", "", "your company")
	waitlistCmd.Flags().StringVar(&entry.Country, "country", "", "your country")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	spec := strings.Join(args, " ")
	if specFile != "" {
		b, err := os.ReadFile(specFile)
		if err != nil {
			return err
		}
		spec = string(b)
	}

	client := services.NewClient(orConfig(generateEndpoint, cfg.GenerateEndpoint), cfg.HTTPTimeout, logger)
	out := cmd.OutOrStdout()
	res, err := submit(cmd.Context(), out, client, schemas.SubmissionRequest{Spec: spec},
		submission.WithMode(submission.SpecMode),
		submission.WithLongWait(cfg.GenerateLongWait))
	if err != nil {
		return err
	}
	printResult(out, res)

	if compareFile != "" {
		if err = printComparison(out, compareFile, res); err != nil {
			return err
		}
	}
	if saveFile != "" {
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(saveFile, b, 0o644)
	}
	return nil
}

func runCompile(cmd *cobra.Command, args []string) error {
	content, err := readModel(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	req := schemas.SubmissionRequest{
		File:              &schemas.FileUpload{Name: filepath.Base(args[0]), Content: content},
		ModelName:         modelName,
		InputShape:        inputShape,
		OptimizationLevel: optLevel,
	}

	client := services.NewClient(orConfig(compileEndpoint, cfg.CompileEndpoint), cfg.HTTPTimeout, logger)
	out := cmd.OutOrStdout()
	res, err := submit(cmd.Context(), out, client, req,
		submission.WithMode(submission.FileMode),
		submission.WithLongWait(cfg.CompileLongWait))
	if err != nil {
		return err
	}
	printResult(out, res)

	if downloadDir == "" {
		return nil
	}
	enc, err := enclave.NewEnclave(downloadDir)
	if err != nil {
		return err
	}
	p, err := client.Download(cmd.Context(), res.DownloadURL(), enc)
	if err != nil {
		return userError(err)
	}
	fmt.Fprintf(out, "Package saved to %s\n", p)
	return nil
}

// readModel reads the model from disk, or from a fresh clone when --repo is set.
func readModel(ctx context.Context, name string) ([]byte, error) {
	if repoURL == "" {
		return os.ReadFile(name)
	}
	enc, err := enclave.NewEnclave(cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	repo := enclave.NewRepository(enc, repoURL)
	if err = repo.Clone(ctx); err != nil {
		return nil, err
	}
	if repoCommit != "" {
		if err = repo.Checkout(repoCommit); err != nil {
			return nil, fmt.Errorf("could not check out %s: %w", repoCommit, err)
		}
	}
	return repo.ReadFile(name)
}

// submit drives one controller through a submission and prints its progress.
func submit(ctx context.Context, out io.Writer, t submission.Transport, req schemas.SubmissionRequest, opts ...submission.Option) (*schemas.SubmissionResult, error) {
	var (
		mu   sync.Mutex
		last = submission.Input
	)
	opts = append(opts,
		submission.WithLogger(logger),
		submission.WithOnChange(func(s submission.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			if s.State == last {
				return
			}
			last = s.State
			switch s.State {
			case submission.Submitting:
				fmt.Fprintln(out, "Working on it...")
			case submission.LongWait:
				fmt.Fprintf(out, "This is taking longer than usual (%s). Still waiting...\n", time.Duration(s.Elapsed)*time.Second)
			}
		}))

	ctrl := submission.New(t, opts...)
	if err := ctrl.Submit(ctx, req); err != nil {
		return nil, userError(err)
	}
	snap, err := ctrl.Wait(ctx)
	if err != nil {
		ctrl.Reset()
		return nil, err
	}
	if snap.State == submission.Failure {
		return nil, userError(snap.Err)
	}
	return snap.Result, nil
}

var panels = []struct{ field, title string }{
	{schemas.FieldRTL, "Verilog Code"},
	{schemas.FieldTestbench, "Testbench"},
	{schemas.FieldSimulation, "Simulation Output"},
}

func printResult(out io.Writer, res *schemas.SubmissionResult) {
	if res.Has(schemas.FieldTitle) {
		fmt.Fprintf(out, "\n%s\n\n", res.Field(schemas.FieldTitle))
	}
	shown := map[string]bool{schemas.FieldTitle: true}
	if res.Has(schemas.FieldRTL) || res.Has(schemas.FieldTestbench) || res.Has(schemas.FieldSimulation) {
		for _, p := range panels {
			fmt.Fprintf(out, "== %s ==\n%s\n\n", p.title, res.Field(p.field))
			shown[p.field] = true
		}
	}
	for _, name := range res.Names() {
		if !shown[name] {
			fmt.Fprintf(out, "%s: %s\n", name, res.Field(name))
		}
	}
}

func printComparison(out io.Writer, path string, current *schemas.SubmissionResult) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	previous := schemas.NewSubmissionResult()
	if err = json.Unmarshal(b, previous); err != nil {
		return fmt.Errorf("%s is not a saved result: %w", path, err)
	}
	diffs, err := services.Diff(previous, current)
	if err != nil {
		return err
	}
	if len(diffs) == 0 {
		fmt.Fprintln(out, "No changes since the saved result.")
		return nil
	}
	for _, name := range services.DiffNames(diffs) {
		fmt.Fprintln(out, diffs[name])
	}
	return nil
}

// userError strips a submission error down to its message.
func userError(err error) error {
	var se *schemas.SubmissionError
	if errors.As(err, &se) {
		return errors.New(se.Message)
	}
	return err
}

func orConfig(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
