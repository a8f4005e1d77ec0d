package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/api"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/config"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/domain"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/history"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/manifest"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/poller"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/present"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/registry"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/schedule"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/internal/workflow"
	"github.com/aayush-bharti/opensearch-cluster-dev-tool/tui"
	webapi "github.com/aayush-bharti/opensearch-cluster-dev-tool/web/api"
)

var (
	launchBuild     bool
	launchDeploy    bool
	launchBenchmark bool
	launchManifest  string
	launchSuffix    string
	launchDistURL   string
	launchEndpoint  string
	launchWorkload  string
	launchBucket    string
	launchWatch     bool

	jobsCached bool
	deleteYes  bool
	servePort  int
)

func init() {
	launchCmd := &cobra.Command{
		Use:   "launch",
		Short: "Launch a build/deploy/benchmark job",
		RunE:  runLaunch,
	}
	launchCmd.Flags().BoolVar(&launchBuild, "build", false, "build the distribution")
	launchCmd.Flags().BoolVar(&launchDeploy, "deploy", false, "deploy a cluster")
	launchCmd.Flags().BoolVar(&launchBenchmark, "benchmark", false, "run the benchmark")
	launchCmd.Flags().StringVar(&launchManifest, "manifest", "", "manifest YAML path (build)")
	launchCmd.Flags().StringVar(&launchSuffix, "suffix", "", "deployment suffix (deploy)")
	launchCmd.Flags().StringVar(&launchDistURL, "distribution-url", "", "distribution tarball URL (deploy without build)")
	launchCmd.Flags().StringVar(&launchEndpoint, "cluster-endpoint", "", "cluster endpoint (benchmark without deploy)")
	launchCmd.Flags().StringVar(&launchWorkload, "workload", "", "benchmark workload type")
	launchCmd.Flags().StringVar(&launchBucket, "s3-bucket", "", "results bucket")
	launchCmd.Flags().BoolVar(&launchWatch, "watch", false, "watch the job after launching")
	rootCmd.AddCommand(launchCmd)

	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs",
		RunE:  runJobs,
	}
	jobsCmd.Flags().BoolVar(&jobsCached, "cached", false, "list from the local history cache (offline)")
	rootCmd.AddCommand(jobsCmd)

	watchCmd := &cobra.Command{
		Use:   "watch JOB_ID",
		Short: "Follow a job until it settles",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	rootCmd.AddCommand(watchCmd)

	showCmd := &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show a job's status and results",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	rootCmd.AddCommand(showCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete JOB_ID",
		Short: "Delete a job",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
	deleteCmd.Flags().BoolVar(&deleteYes, "yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(deleteCmd)

	cancelCmd := &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Cancel a running job",
		Args:  cobra.ExactArgs(1),
		RunE:  runCancel,
	}
	rootCmd.AddCommand(cancelCmd)

	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Launch the TUI dashboard",
		RunE:  runDashboard,
	}
	rootCmd.AddCommand(dashboardCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// session wires the client, registry, pollers, and history cache the
// way every command needs them
type session struct {
	cfg      *config.Config
	client   *api.Client
	registry *registry.Registry
	store    *history.Store
}

func newSession(opts registry.Options) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	client := api.NewClient(api.Endpoints{
		BaseURL:    cfg.Backend.BaseURL,
		PathPrefix: cfg.Backend.PathPrefix,
	}, cfg.RequestTimeout())

	store, err := history.New(cfg.History.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening history cache: %w", err)
	}

	opts.ListLimit = cfg.Polling.ListLimit
	opts.History = store

	return &session{
		cfg:      cfg,
		client:   client,
		registry: registry.New(client, opts),
		store:    store,
	}, nil
}

func (s *session) close() {
	s.store.Close()
}

func runLaunch(cmd *cobra.Command, args []string) error {
	s, err := newSession(registry.Options{})
	if err != nil {
		return err
	}
	defer s.close()

	selected := domain.SelectedTasks{
		Build:     launchBuild,
		Deploy:    launchDeploy,
		Benchmark: launchBenchmark,
	}

	wcfg := workflow.NewConfig()
	wcfg.Suffix = launchSuffix
	wcfg.DistributionURL = launchDistURL
	wcfg.ClusterEndpoint = launchEndpoint
	wcfg.WorkloadType = launchWorkload
	wcfg.S3Bucket = launchBucket

	manifestPath := launchManifest
	if manifestPath == "" {
		manifestPath = s.cfg.Manifest.Path
	}
	if selected.Build && manifestPath != "" {
		m, err := manifest.Load(manifestPath)
		if err != nil {
			return err
		}
		wcfg.ManifestYML = m.Content
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout())
	defer cancel()

	record, err := s.registry.Launch(ctx, selected, wcfg)
	if err != nil {
		var verr *registry.ValidationError
		if errors.As(err, &verr) {
			for _, msg := range verr.Errors {
				fmt.Fprintf(os.Stderr, "  - %s\n", msg)
			}
			return fmt.Errorf("launch blocked by validation")
		}
		return err
	}

	fmt.Printf("Launched job #%d (%s): %s\n",
		record.DisplayID, record.JobID, strings.Join(record.Tasks.Names(), "+"))

	if launchWatch {
		return watchJob(s, record.JobID, record.DisplayID)
	}
	return nil
}

func runJobs(cmd *cobra.Command, args []string) error {
	s, err := newSession(registry.Options{})
	if err != nil {
		return err
	}
	defer s.close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tJOB\tSTATUS\tTASKS\tCREATED")

	if jobsCached {
		jobs, err := s.store.ListJobs(s.cfg.Polling.ListLimit)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\n",
				job.Record.DisplayID, job.Record.JobID, job.Status,
				strings.Join(job.Record.Tasks.Names(), "+"), job.Record.CreatedAt)
		}
		w.Flush()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout())
	defer cancel()

	if err := s.registry.Refresh(ctx); err != nil {
		return err
	}

	for _, job := range s.registry.Jobs() {
		status := domain.JobQueued
		if cached, _ := s.store.GetJob(job.JobID); cached != nil {
			status = cached.Status
		}
		fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\n",
			job.DisplayID, job.JobID, status,
			strings.Join(job.Tasks.Names(), "+"), job.CreatedAt)
	}
	w.Flush()
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession(registry.Options{})
	if err != nil {
		return err
	}
	defer s.close()
	return watchJob(s, args[0], 0)
}

// watchJob attaches a poller and prints its log entries until the job
// settles or the operator interrupts
func watchJob(s *session, jobID string, displayID int) error {
	settled := make(chan struct{})
	p := poller.New(jobID, displayID, s.client, poller.Options{
		Interval: s.cfg.PollInterval(),
		OnUpdate: func(u poller.Update) {
			for _, entry := range u.NewEntries {
				fmt.Printf("%s  %s\n", entry.Timestamp.Format("15:04:05"), entry.Message)
			}
			if u.State == poller.StateSettled {
				close(settled)
			}
		},
	})
	p.Start()
	defer p.Stop()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-settled:
		return nil
	case <-interrupt:
		fmt.Println("\nDetached; the job keeps running on the backend")
		return nil
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := newSession(registry.Options{})
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout())
	defer cancel()

	detail, err := s.client.GetJob(ctx, args[0])
	if err != nil {
		return err
	}

	snap := detail.Snapshot()
	fmt.Printf("Job #%d (%s)\n", detail.DisplayID, detail.JobID)
	fmt.Printf("  Status:  %s\n", snap.Status)
	if snap.Progress != nil {
		fmt.Printf("  Progress: %d/%d", snap.Progress.CompletedTasks, snap.Progress.TotalTasks)
		if snap.Progress.CurrentStep != "" {
			fmt.Printf(" (%s)", snap.Progress.CurrentStep)
		}
		fmt.Println()
	}
	if snap.Error != "" {
		fmt.Printf("  Error:   %s\n", snap.Error)
	}

	for _, section := range present.Sections(snap) {
		fmt.Printf("\n%s", section.Title)
		if section.Status != "" {
			fmt.Printf(" [%s]", section.Status)
		}
		fmt.Println()
		for _, field := range section.Fields {
			fmt.Printf("  %s: %s\n", field.Label, field.Value)
		}
		if section.Table != nil {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  "+strings.Join(section.Table.Columns, "\t"))
			for _, row := range section.Table.Rows {
				fmt.Fprintln(w, "  "+strings.Join(row, "\t"))
			}
			w.Flush()
		}
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	confirm := promptConfirm
	if deleteYes {
		confirm = nil
	}

	s, err := newSession(registry.Options{Confirm: confirm})
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout())
	defer cancel()

	if err := s.registry.Refresh(ctx); err != nil {
		return err
	}

	if err := s.registry.Delete(ctx, args[0]); err != nil {
		if errors.Is(err, registry.ErrDeleteNotConfirmed) {
			fmt.Println("Aborted")
			return nil
		}
		return err
	}

	fmt.Printf("Deleted job %s\n", args[0])
	return nil
}

func promptConfirm(record *domain.JobRecord) bool {
	if record != nil {
		fmt.Printf("Delete job #%d (%s)? This cannot be undone. [y/N] ", record.DisplayID, record.JobID)
	} else {
		fmt.Print("Delete this job? This cannot be undone. [y/N] ")
	}
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func runCancel(cmd *cobra.Command, args []string) error {
	s, err := newSession(registry.Options{})
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout())
	defer cancel()

	if err := s.registry.Cancel(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Cancellation requested for job %s\n", args[0])
	return nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	s, err := newSession(registry.Options{})
	if err != nil {
		return err
	}
	defer s.close()

	updates := make(chan poller.Update, 64)
	pollers := poller.NewManager(s.client, s.cfg.PollInterval(), func(u poller.Update) {
		updates <- u
	})
	defer pollers.StopAll()

	if s.cfg.Polling.RefreshCron != "" {
		sched, err := schedule.New(s.registry, s.cfg.Polling.RefreshCron, s.cfg.RequestTimeout())
		if err != nil {
			return fmt.Errorf("refresh_cron: %w", err)
		}
		go sched.Start(context.Background())
		defer sched.Stop()
	}

	model := tui.NewModel(tui.ModelConfig{
		Registry: s.registry,
		Pollers:  pollers,
		Updates:  updates,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := newSession(registry.Options{})
	if err != nil {
		return err
	}
	defer s.close()

	port := servePort
	if port == 0 {
		port = s.cfg.Web.Port
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Web.Host, port)

	var server *webapi.Server
	pollers := poller.NewManager(s.client, s.cfg.PollInterval(), func(u poller.Update) {
		server.PublishUpdate(u)
	})
	defer pollers.StopAll()
	server = webapi.NewServer(s.registry, pollers, addr)

	attach := func() {
		for _, job := range s.registry.Jobs() {
			pollers.Attach(job.JobID, job.DisplayID)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout())
	if err := s.registry.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "initial refresh failed: %v\n", err)
	}
	cancel()
	attach()

	cron := s.cfg.Polling.RefreshCron
	if cron == "" {
		cron = "*/5 * * * *"
	}
	sched, err := schedule.New(refreshThenAttach{s.registry, attach}, cron, s.cfg.RequestTimeout())
	if err != nil {
		return fmt.Errorf("refresh_cron: %w", err)
	}
	go sched.Start(context.Background())
	defer sched.Stop()

	fmt.Printf("Serving dashboard at http://%s\n", addr)
	return server.Start()
}

// refreshThenAttach refreshes the registry and then attaches pollers
// for any newly listed jobs
type refreshThenAttach struct {
	registry *registry.Registry
	attach   func()
}

func (r refreshThenAttach) Refresh(ctx context.Context) error {
	if err := r.registry.Refresh(ctx); err != nil {
		return err
	}
	r.attach()
	return nil
}
