package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlab/internal/runconfig"
	"github.com/wonny/factorlab/internal/scheduler"
	"github.com/wonny/factorlab/internal/scheduler/jobs"
)

var (
	schedulerRuns  []string
	retentionDays  int
	schedulerRetry int
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `런 파일마다 팩터 계산 작업을 등록하고 스케줄러를 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/quant scheduler start --run config/factor/kospi_volatility.yaml
  go run ./cmd/quant scheduler list --run config/factor/kospi_volatility.yaml
  go run ./cmd/quant scheduler run factor_kospi_volatility --run config/factor/kospi_volatility.yaml`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- factor_<run_id>: 런 파일의 schedule.cron (기본: 평일 18:30)
- factor_retention: 매주 일요일 03:00 (오래된 팩터 값 삭제)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringArrayVar(&schedulerRuns, "run", nil, "run file (repeatable)")
	schedulerCmd.PersistentFlags().IntVar(&retentionDays, "retention-days", 730, "keep factor values for this many days (0 = forever)")
	schedulerCmd.PersistentFlags().IntVar(&schedulerRetry, "retries", 3, "retries per failed job")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== factorlab Scheduler ===")

	sched, a, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	renderJobStats(sched.GetJobStats())
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.NextRun(jobName)
		if next.IsZero() {
			fmt.Printf("  - %s\n", jobName)
			continue
		}
		fmt.Printf("  - %s (next: %s)\n", jobName, next.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]
	fmt.Printf("Running job: %s\n", jobName)

	sched, a, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	result, err := sched.RunJob(context.Background(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("❌ job %s failed after %d attempts: %s", jobName, result.Attempts, result.Error)
	}

	fmt.Printf("✅ Job completed in %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

// initScheduler registers one factor job per run file plus the retention job
func initScheduler(ctx context.Context) (*scheduler.Scheduler, *app, error) {
	if len(schedulerRuns) == 0 {
		return nil, nil, fmt.Errorf("at least one --run is required")
	}

	runs := make([]*runconfig.Config, 0, len(schedulerRuns))
	for _, path := range schedulerRuns {
		run, err := loadRun(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		runs = append(runs, run)
	}

	// the first run decides cache and market-cap settings of the shared fetcher
	a, err := newApp(ctx, runs[0])
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log, scheduler.WithRetry(schedulerRetry, time.Minute))
	for _, run := range runs {
		job := jobs.NewFactorJob(run, a.builder(), a.factors, a.industries, a.log)
		if err := sched.AddJob(job); err != nil {
			a.close()
			return nil, nil, err
		}
	}
	if retentionDays > 0 {
		retention := time.Duration(retentionDays) * 24 * time.Hour
		if err := sched.AddJob(jobs.NewRetentionJob(a.db.Pool, retention, a.log)); err != nil {
			a.close()
			return nil, nil, err
		}
	}
	return sched, a, nil
}
