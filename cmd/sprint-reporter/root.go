package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/schollz/progressbar/v3"

	"github.com/sprintdeck/sprint-reporter/internal/app"
	"github.com/sprintdeck/sprint-reporter/internal/config"
	"github.com/sprintdeck/sprint-reporter/internal/jira"
	"github.com/sprintdeck/sprint-reporter/internal/store"
)

var (
	verbose   bool
	schedule  string
	outputDir string
)

var rootCmd = &cobra.Command{
	Use:   "sprint-reporter",
	Short: "Generate and distribute Jira sprint reports",
	Long: `sprint-reporter fetches the issues of a Jira sprint, classifies them
into stories and defects, renders an interactive HTML report, captures it
as images and distributes the result over email, webhook and wiki.

Connection settings come from the environment (or a .env file); see the
README for the variable list.`,
	SilenceUsage: true,
	RunE:         runReport,
}

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List the Jira boards visible to the configured account",
	RunE:  listBoards,
}

var sprintCmd = &cobra.Command{
	Use:   "sprint [id]",
	Short: "Show a sprint's name, state, dates and goal",
	Long:  "Shows the sprint named by the argument, or JIRA_SPRINT_ID when omitted.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showSprint,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent report runs from the local history database",
	RunE:  listRuns,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(boardsCmd)
	rootCmd.AddCommand(sprintCmd)
	rootCmd.AddCommand(runsCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule; run continuously instead of once")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides OUTPUT_DIR)")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func runReport(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if schedule != "" {
		cfg.Schedule = schedule
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = pipeline.Close() }()

	if cfg.Schedule != "" {
		return app.RunScheduled(ctx, cfg.Schedule, pipeline, logger)
	}

	bar := newSpinner("Fetching sprint issues")
	pipeline.SetProgress(func(fetched, total int) {
		if total > 0 {
			bar.ChangeMax(total)
		}
		_ = bar.Set(fetched)
	})

	err = pipeline.Run(ctx)
	finishBar(bar)
	if err != nil {
		return err
	}

	fmt.Printf("Report written to %s/\n", cfg.OutputDir)
	return nil
}

func listBoards(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := jira.New(jira.Config{
		BaseURL:  cfg.BaseURL,
		Username: cfg.Username,
		Token:    cfg.APIToken,
	})

	boards, err := client.Boards(ctx)
	if err != nil {
		logger.Error("listing boards failed", "error", err)
		return err
	}

	fmt.Printf("%-8s %-10s %s\n", "ID", "TYPE", "NAME")
	for _, b := range boards {
		fmt.Printf("%-8d %-10s %s\n", b.ID, b.Type, b.Name)
	}
	return nil
}

func showSprint(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sprintID := cfg.SprintID
	if len(args) > 0 {
		sprintID = args[0]
	}
	if sprintID == "" {
		return fmt.Errorf("no sprint id given and JIRA_SPRINT_ID is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := jira.New(jira.Config{
		BaseURL:  cfg.BaseURL,
		Username: cfg.Username,
		Token:    cfg.APIToken,
	})

	sprint, err := client.GetSprint(ctx, sprintID)
	if err != nil {
		logger.Error("fetching sprint failed", "sprint", sprintID, "error", err)
		return err
	}

	fmt.Printf("Name:   %s\n", sprint.Name)
	fmt.Printf("State:  %s\n", sprint.State)
	fmt.Printf("Start:  %s\n", sprint.StartDate)
	fmt.Printf("End:    %s\n", sprint.EndDate)
	if sprint.Goal != "" {
		fmt.Printf("Goal:   %s\n", sprint.Goal)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("REPORT_DB is not set; run history is disabled")
	}

	history, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	ctx := context.Background()
	runs, err := history.ListRuns(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("%-36s %-20s %-10s %-8s %-8s %s\n",
		"RUN", "SPRINT", "STATUS", "STORIES", "DEFECTS", "STARTED")
	for _, r := range runs {
		fmt.Printf("%-36s %-20s %-10s %d/%-6d %d/%-6d %s\n",
			r.ID, r.SprintName, r.Status,
			r.StoriesDone, r.StoriesTotal,
			r.DefectsDone, r.DefectsTotal,
			r.StartedAt.Format("2006-01-02 15:04"))

		channels, err := history.ChannelResults(ctx, r.ID)
		if err != nil {
			return err
		}
		for _, c := range channels {
			status := "ok"
			if !c.OK {
				status = "failed: " + c.Error
			}
			fmt.Printf("    %-10s %s\n", c.Channel, status)
		}
	}
	return nil
}

func newSpinner(description string) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	_ = bar.RenderBlank()
	return bar
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
	}
}
