package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/hochfrequenz/taskmaster-longrun/internal/assets"
	"github.com/hochfrequenz/taskmaster-longrun/internal/config"
	"github.com/hochfrequenz/taskmaster-longrun/internal/domain"
	"github.com/hochfrequenz/taskmaster-longrun/internal/ledger"
	"github.com/hochfrequenz/taskmaster-longrun/internal/planview"
	"github.com/hochfrequenz/taskmaster-longrun/internal/rlog"
	"github.com/hochfrequenz/taskmaster-longrun/internal/runexec"
	"github.com/hochfrequenz/taskmaster-longrun/internal/runner"
	"github.com/hochfrequenz/taskmaster-longrun/internal/session"
	"github.com/hochfrequenz/taskmaster-longrun/internal/statusfeed"
	"github.com/hochfrequenz/taskmaster-longrun/internal/taskstore"
	"github.com/hochfrequenz/taskmaster-longrun/tui"
)

const ledgerTailSize = 20

var (
	initProjectRoot string
	runProjectRoot  string
	statusRoot      string
	scheduleRoot    string
	tuiRoot         string
)

func init() {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create or refresh the session assets (hook block, skill file, templates)",
		RunE:  runInit,
	}
	initCmd.Flags().StringVar(&initProjectRoot, "project-root", ".", "project root directory")
	rootCmd.AddCommand(initCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the task loop to completion or a stop condition",
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&runProjectRoot, "project-root", ".", "project root directory")
	rootCmd.AddCommand(runCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current plan projection",
		RunE:  runStatus,
	}
	statusCmd.Flags().StringVar(&statusRoot, "project-root", ".", "project root directory")
	rootCmd.AddCommand(statusCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Re-invoke the run loop on a cron schedule until interrupted",
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().StringVar(&scheduleRoot, "project-root", ".", "project root directory")
	rootCmd.AddCommand(scheduleCmd)

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Show a live read-only dashboard of the plan and ledger",
		RunE:  runTUI,
	}
	tuiCmd.Flags().StringVar(&tuiRoot, "project-root", ".", "project root directory")
	rootCmd.AddCommand(tuiCmd)
}

func loadConfig() (*config.Config, error) {
	return config.LoadWithLocalFallback(configPath)
}

func resolvePaths(cfg *config.Config, projectRoot string) (domain.SessionPaths, error) {
	mode := domain.ModeFull
	if cfg.General.Mode == "lite" {
		mode = domain.ModeLite
	}
	root := projectRoot
	if cfg.General.ProjectRoot != "" {
		root = cfg.General.ProjectRoot
	}
	return session.Resolve(session.Options{
		ProjectRoot:      root,
		Mode:             mode,
		AgentContextPath: cfg.General.AgentContext,
		SkillPath:        cfg.General.SkillPath,
		SessionDirPath:   cfg.General.SessionDir,
	})
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	paths, err := resolvePaths(cfg, initProjectRoot)
	if err != nil {
		return err
	}

	var fetcher assets.TemplateFetcher
	if cfg.Assets.TemplateURL != "" {
		fetcher = assets.NewHTTPFetcher(cfg.Assets.TemplateURL)
	}

	result, err := assets.InitAssets(paths, assets.Options{
		AgentsMode:    domain.AgentsMode(cfg.Assets.AgentsMode),
		Fetcher:       fetcher,
		DisableRemote: cfg.Assets.DisableRemote,
	})
	if err != nil {
		return err
	}

	for path, state := range result.Files {
		fmt.Printf("%s\t%s\n", state, path)
	}
	return nil
}

func openTaskStore(cfg *config.Config) (taskstore.Store, error) {
	path := cfg.General.TaskStorePath
	if path == "" {
		return nil, fmt.Errorf("task_store_path not configured")
	}
	return taskstore.NewSQLiteStore(path)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	paths, err := resolvePaths(cfg, runProjectRoot)
	if err != nil {
		return err
	}
	store, err := openTaskStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var observer runner.Observer
	if cfg.Status.Enabled {
		hub := statusfeed.NewHub()
		go hub.Run()
		addr := fmt.Sprintf("%s:%d", cfg.Status.Host, cfg.Status.Port)
		go func() {
			if err := http.ListenAndServe(addr, hub); err != nil {
				rlog.New("statusfeed").Warn("websocket server stopped: %v", err)
			}
		}()
		fmt.Printf("status feed listening at ws://%s\n", addr)
		observer = hub
	}

	opts := runner.Options{
		MaxTasks:          cfg.Retry.MaxTasks,
		MaxRetries:        cfg.Retry.MaxRetries,
		ContinueOnFailure: cfg.Retry.ContinueOnFailure,
		Exec: buildExecOptions(cfg),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, store, paths, opts, observer)
	if err != nil {
		return err
	}

	fmt.Printf("run complete: status=%s completed=%d blocked=%d total_runs=%d\n",
		result.FinalStatus, len(result.CompletedTaskIDs), len(result.BlockedTaskIDs), result.TotalRuns)
	if result.ErrorMessage != "" {
		fmt.Println(result.ErrorMessage)
	}
	return nil
}

func buildExecOptions(cfg *config.Config) runexec.Options {
	return runexec.Options{
		Executable:    cfg.Agent.Command,
		IdleTimeoutMs: int64(cfg.Timeouts.IdleSeconds) * 1000,
		HardTimeoutMs: int64(cfg.Timeouts.HardSeconds) * 1000,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	paths, err := resolvePaths(cfg, statusRoot)
	if err != nil {
		return err
	}
	store, err := openTaskStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tasks, err := store.AllTasks()
	if err != nil {
		return err
	}
	checkpoint, err := ledger.ReadCheckpoint(paths.CheckpointFile)
	if err != nil {
		return err
	}

	rows := planview.Project(tasks, checkpoint, time.Now())
	if paths.Mode == domain.ModeLite {
		fmt.Print(planview.RenderLite(rows))
	} else {
		fmt.Print(planview.RenderFull(rows))
	}
	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	runProjectRoot = scheduleRoot

	c := cron.New()
	_, err = c.AddFunc(cfg.Schedule.Spec, func() {
		if err := runRun(cmd, nil); err != nil {
			fmt.Fprintf(os.Stderr, "scheduled run failed: %v\n", err)
		}
	})
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", cfg.Schedule.Spec, err)
	}

	fmt.Printf("scheduling run on %q until interrupted\n", cfg.Schedule.Spec)
	c.Start()
	defer c.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	paths, err := resolvePaths(cfg, tuiRoot)
	if err != nil {
		return err
	}
	store, err := openTaskStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	model := tui.NewModel(tui.ModelConfig{
		ProjectRoot: paths.ProjectRoot,
		Refresh:     dashboardRefresh(store, paths),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	watcher, err := planview.NewWatcher(paths.LedgerFile, func(string) {
		p.Send(tui.TickMsg(time.Now()))
	})
	if err != nil {
		return err
	}
	if err := watcher.Watch(filepath.Dir(paths.LedgerFile)); err != nil {
		watcher.Close()
		return err
	}
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	watcher.Start(watchCtx)
	defer func() {
		cancelWatch()
		watcher.Close()
	}()

	_, err = p.Run()
	return err
}

// dashboardRefresh returns the read-only snapshot loader the tui package
// ticks on: the current plan projection plus the most recent ledger
// entries, read fresh from disk on every call.
func dashboardRefresh(store taskstore.Store, paths domain.SessionPaths) tui.RefreshFunc {
	return func() (tui.Snapshot, error) {
		tasks, err := store.AllTasks()
		if err != nil {
			return tui.Snapshot{}, err
		}
		checkpoint, err := ledger.ReadCheckpoint(paths.CheckpointFile)
		if err != nil {
			return tui.Snapshot{}, err
		}
		tail, err := ledger.ReadTail(paths.LedgerFile, ledgerTailSize)
		if err != nil {
			return tui.Snapshot{}, err
		}
		return tui.Snapshot{
			Rows:       planview.Project(tasks, checkpoint, time.Now()),
			LedgerTail: tail,
		}, nil
	}
}
