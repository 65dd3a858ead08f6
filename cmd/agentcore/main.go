// Command agentcore runs the agent task orchestration engine: it loads
// configuration, builds the provider clients, and drives a pipeline run (or a
// remote job) to completion, printing the final report.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"agentcore/pkg/agent"
	"agentcore/pkg/agent/llmerrors"
	"agentcore/pkg/agent/middleware/metrics"
	"agentcore/pkg/compose"
	"agentcore/pkg/config"
	"agentcore/pkg/dispatch"
	"agentcore/pkg/jobs"
	"agentcore/pkg/logx"
	runmetrics "agentcore/pkg/metrics"
	"agentcore/pkg/persistence"
	"agentcore/pkg/pipeline"
	"agentcore/pkg/utils"
)

// Version information - set by goreleaser via ldflags.
var (
	version = "dev"
	commit  = "none"
)

const keystorePasswordEnv = "AGENTCORE_KEYSTORE_PASSWORD"

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "Path to configuration file")
		project     = flag.String("project", "", "Project description to orchestrate")
		simulate    = flag.Bool("simulate", false, "Force simulated execution for remote jobs")
		remote      = flag.Bool("remote", false, "Delegate the project to the remote job service instead of the local pipeline")
		keystoreDir = flag.String("keystore", defaultKeystoreDir(), "Keystore directory")
		setKey      = flag.String("set-key", "", "Store an API key under the given name and exit")
		listRuns    = flag.Bool("list-runs", false, "List journaled runs and exit")
		metricsAddr = flag.String("metrics-addr", "", "Address to expose /metrics on (empty: disabled)")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("agentcore %s (%s)\n", version, commit)
		os.Exit(0)
	}

	if *setKey != "" {
		os.Exit(storeKey(*keystoreDir, *setKey))
	}

	os.Exit(run(*configPath, *project, *keystoreDir, *metricsAddr, *simulate, *remote, *listRuns))
}

// run contains the main application logic and returns an exit code, so
// defers execute before the process exits.
func run(configPath, project, keystoreDir, metricsAddr string, simulate, remote, listRuns bool) int {
	logger := logx.NewLogger("main")

	keystore, err := openKeystore(keystoreDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open keystore: %v\n", err)
		return 1
	}

	cfg, err := config.Load(configPath, keystore)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if simulate {
		cfg.Poller.Simulate = true
	}

	var store *persistence.Store
	if cfg.DatabasePath != "" {
		store, err = persistence.Open(cfg.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open run journal: %v\n", err)
			return 1
		}
		defer store.Close()
	}

	if listRuns {
		return printRuns(store)
	}

	if strings.TrimSpace(project) == "" {
		fmt.Fprintln(os.Stderr, "No project description given; use -project.")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, logger)
	}

	runID := utils.NewRunID()
	recorder := metrics.NewPrometheusRecorder()
	logger.Info("starting run %s", runID)

	if remote {
		return runRemoteJob(ctx, cfg, store, recorder, runID, project)
	}
	return runPipeline(ctx, cfg, store, recorder, runID, project)
}

// runPipeline drives the local design/delegate/execute/evaluate workflow.
func runPipeline(ctx context.Context, cfg *config.Config, store *persistence.Store,
	recorder metrics.Recorder, runID, project string) int {

	composer, err := compose.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load prompt templates: %v\n", err)
		return 1
	}

	clients := agent.NewClientSet(cfg, recorder, runID)
	dispatcher := dispatch.New(clients, cfg.Dispatch.BackoffBase(), cfg.Dispatch.BackoffCap())

	agents := make([]pipeline.Agent, 0, len(cfg.Agents))
	for i := range cfg.Agents {
		a := &cfg.Agents[i]
		agents = append(agents, pipeline.Agent{
			Name:  a.Name,
			Role:  compose.Role(a.Role),
			Model: cfg.ModelFor(a),
		})
	}

	p := pipeline.New(composer, dispatcher, pipeline.Config{
		Agents:      agents,
		Description: project,
		Budget: dispatch.Budget{
			MaxAttempts:       cfg.Dispatch.MaxAttempts,
			TimeoutPerAttempt: cfg.Dispatch.AttemptTimeout(),
		},
	})

	report, err := p.Run(ctx)
	if err != nil {
		if llmerrors.IsCancelled(err) {
			fmt.Fprintln(os.Stderr, "Run cancelled.")
			return 130
		}
		fmt.Fprintf(os.Stderr, "Pipeline failed: %v\n", err)
		return 1
	}

	printReport(report)

	if store != nil {
		if err := store.SaveReport(context.Background(), runID, project, report); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not journal report: %v\n", err)
		}
	}
	printUsage(cfg, runID)
	return 0
}

// runRemoteJob submits the project to the async-execution service and polls
// it to a terminal status.
func runRemoteJob(ctx context.Context, cfg *config.Config, store *persistence.Store,
	recorder metrics.Recorder, runID, project string) int {

	service := jobs.NewHTTPService(cfg.Poller.Endpoint, nil)
	poller := jobs.New(service, cfg.Poller.Simulate, jobs.Options{
		InitialInterval: cfg.Poller.InitialInterval(),
		MaxInterval:     cfg.Poller.MaxInterval(),
		GrowthFactor:    cfg.Poller.GrowthFactor,
		MaxAttempts:     cfg.Poller.MaxAttempts,
		ExtraRetries:    jobs.DefaultOptions.ExtraRetries,
		SubmitAttempts:  jobs.DefaultOptions.SubmitAttempts,
		SubmitBackoff:   jobs.DefaultOptions.SubmitBackoff,
	}, recorder)

	job, err := poller.Submit(ctx, map[string]any{"prompt": project})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Submission failed: %v\n", err)
		return 1
	}
	if job.Warning != "" {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", job.Warning)
	}
	fmt.Printf("Submitted %s\n", job)

	snap, err := poller.Run(ctx, job)
	if store != nil {
		if jerr := store.SaveJobSnapshot(context.Background(), runID, job); jerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not journal job: %v\n", jerr)
		}
	}
	if err != nil {
		if llmerrors.IsCancelled(err) {
			fmt.Fprintln(os.Stderr, "Polling cancelled.")
			return 130
		}
		fmt.Fprintf(os.Stderr, "Polling failed: %v\n", err)
		return 1
	}

	fmt.Printf("Job %s finished: %s\n", job.ID, snap.Status)
	if snap.Result != "" {
		fmt.Println(snap.Result)
	}
	if snap.Error != "" {
		fmt.Fprintln(os.Stderr, snap.Error)
	}
	return 0
}

func printReport(report *pipeline.Report) {
	fmt.Println("=== Plan ===")
	fmt.Println(report.Plan)
	fmt.Println()
	fmt.Println("=== Task results ===")
	for _, outcome := range report.Results {
		fmt.Printf("[%s] %s (%s)\n", outcome.Status, outcome.Description, outcome.AssignedRole)
		fmt.Println(outcome.Result)
		fmt.Println()
	}
	fmt.Println("=== Evaluation ===")
	fmt.Println(report.Evaluation)
}

// printUsage reports aggregated token usage for the run, best effort.
func printUsage(cfg *config.Config, runID string) {
	if cfg.PrometheusURL == "" {
		return
	}
	query, err := runmetrics.NewQueryService(cfg.PrometheusURL)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	usage, err := query.GetRunMetrics(ctx, runID)
	if err != nil {
		return
	}
	fmt.Printf("Tokens: %d prompt, %d completion (%d requests, %d failed)\n",
		usage.PromptTokens, usage.CompletionTokens, usage.Requests, usage.FailedRequests)
}

func printRuns(store *persistence.Store) int {
	if store == nil {
		fmt.Fprintln(os.Stderr, "No database_path configured; nothing to list.")
		return 1
	}
	records, err := store.ListRuns(context.Background(), 50)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list runs: %v\n", err)
		return 1
	}
	for _, rec := range records {
		fmt.Printf("%s  %s  %d tasks  %s\n",
			rec.RunID, rec.CreatedAt.Format(time.RFC3339), len(rec.Report.Results), rec.Description)
	}
	return 0
}

// storeKey prompts for a secret on the terminal and saves it to the keystore.
func storeKey(dir, name string) int {
	fmt.Printf("Value for %s: ", name)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read key: %v\n", err)
		return 1
	}

	fmt.Print("Keystore password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read password: %v\n", err)
		return 1
	}

	keystore, err := config.OpenKeystore(dir, string(password))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open keystore: %v\n", err)
		return 1
	}
	keystore.Set(name, strings.TrimSpace(string(value)))
	if err := keystore.Save(string(password)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save keystore: %v\n", err)
		return 1
	}
	fmt.Printf("Stored %s.\n", name)
	return 0
}

// openKeystore opens the keystore when a password is available in the
// environment; otherwise key resolution falls back to environment variables.
func openKeystore(dir string) (*config.Keystore, error) {
	password := os.Getenv(keystorePasswordEnv)
	if password == "" {
		return nil, nil
	}
	return config.OpenKeystore(dir, password)
}

func defaultKeystoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentcore"
	}
	return home + "/.agentcore"
}

func serveMetrics(addr string, logger *logx.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics listener failed: %v", err)
	}
}
