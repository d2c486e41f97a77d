package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlab/internal/runconfig"
	"github.com/wonny/factorlab/internal/s0_data"
	"github.com/wonny/factorlab/internal/s5_evaluate"
)

var (
	runFile     string
	saveFactors bool
	outDir      string
	onlyFactor  string
	previewRows int
)

// factorCmd represents the factor command
var factorCmd = &cobra.Command{
	Use:   "factor",
	Short: "팩터 계산/평가",
	Long: `런 파일(YAML)에 정의된 팩터를 계산하거나 평가 테이블을 만듭니다.

Subcommands:
  compute   - 팩터 계산 (--save 시 factors.factor_values에 저장)
  evaluate  - 팩터 + forward return + 업종 조인, winsorize/z-score/bucket 후 CSV 저장
  show      - 저장된 팩터 조회

Example:
  go run ./cmd/quant factor compute --run config/factor/kospi_volatility.yaml --save
  go run ./cmd/quant factor evaluate --run config/factor/kospi_volatility.yaml --out out/
  go run ./cmd/quant factor show --run config/factor/kospi_volatility.yaml --factor hbeta`,
}

var (
	factorComputeCmd = &cobra.Command{
		Use:   "compute",
		Short: "팩터 계산",
		RunE:  runFactorCompute,
	}

	factorEvaluateCmd = &cobra.Command{
		Use:   "evaluate",
		Short: "평가 테이블 생성 (CSV)",
		RunE:  runFactorEvaluate,
	}

	factorShowCmd = &cobra.Command{
		Use:   "show",
		Short: "저장된 팩터 조회",
		RunE:  runFactorShow,
	}
)

func init() {
	rootCmd.AddCommand(factorCmd)
	factorCmd.AddCommand(factorComputeCmd)
	factorCmd.AddCommand(factorEvaluateCmd)
	factorCmd.AddCommand(factorShowCmd)

	factorCmd.PersistentFlags().StringVar(&runFile, "run", "", "run file (YAML)")
	factorCmd.PersistentFlags().StringVar(&onlyFactor, "factor", "", "limit to one factor of the run")
	factorCmd.PersistentFlags().IntVar(&previewRows, "rows", 10, "preview rows")
	factorComputeCmd.Flags().BoolVar(&saveFactors, "save", false, "store results in factors.factor_values")
	factorEvaluateCmd.Flags().StringVar(&outDir, "out", "out", "output directory for CSV files")
}

// selectFactor narrows a run to --factor when given
func selectFactor(run *runconfig.Config) error {
	if onlyFactor == "" {
		return nil
	}
	for _, f := range run.Factors {
		if f.Name == onlyFactor {
			run.Factors = []runconfig.Factor{f}
			return nil
		}
	}
	return fmt.Errorf("factor %q is not part of run %s", onlyFactor, run.Meta.RunID)
}

func runFactorCompute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	run, err := loadRun(runFile)
	if err != nil {
		return err
	}
	if err := selectFactor(run); err != nil {
		return err
	}

	a, err := newApp(ctx, run)
	if err != nil {
		return err
	}
	defer a.close()

	stocks, err := a.universe(ctx, run)
	if err != nil {
		return err
	}

	printHeader("Factor Compute",
		fmt.Sprintf("Run       : %s", run.Meta.RunID),
		fmt.Sprintf("Factors   : %v", run.FactorNames()),
		fmt.Sprintf("Stocks    : %d", len(stocks)))

	start := time.Now()
	set, err := a.builder().Build(ctx, run, stocks)
	if err != nil {
		return err
	}

	renderFactorSummary(set)
	for _, name := range set.Names {
		renderPanelTail(name, set.Panels[name], previewRows)
	}

	if saveFactors {
		saved, err := a.factors.SaveAll(ctx, set.RunHash, set.Names, set.Panels)
		if err != nil {
			return err
		}
		fmt.Printf("💾 Saved %d values (run hash %s)\n", saved, set.RunHash[:12])
	}

	fmt.Printf("\n✅ Completed in %.2fs\n", time.Since(start).Seconds())
	return nil
}

func runFactorEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	run, err := loadRun(runFile)
	if err != nil {
		return err
	}
	if err := selectFactor(run); err != nil {
		return err
	}

	a, err := newApp(ctx, run)
	if err != nil {
		return err
	}
	defer a.close()

	stocks, err := a.universe(ctx, run)
	if err != nil {
		return err
	}

	set, err := a.builder().Build(ctx, run, stocks)
	if err != nil {
		return err
	}

	industries, err := a.industries.Industries(ctx, stocks)
	if err != nil {
		return err
	}

	// forward returns need prices after the last factor date
	opts := s5_evaluate.OptionsFromRun(run)
	horizon := 0
	for _, k := range opts.Intervals {
		if k > horizon {
			horizon = k
		}
	}
	prices, err := a.fetcher.Fetch(ctx, stocks, set.From, set.To.AddDate(0, 0, horizon*7/5+7), s0_data.FieldClose)
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	printHeader("Factor Evaluate",
		fmt.Sprintf("Run       : %s", run.Meta.RunID),
		fmt.Sprintf("Period    : %s ~ %s", set.From.Format("2006-01-02"), set.To.Format("2006-01-02")),
		fmt.Sprintf("Intervals : %v", opts.Intervals),
		fmt.Sprintf("Bins      : %d (by industry: %v)", opts.Bins, opts.ByIndustry))

	for _, name := range set.Names {
		table, err := s5_evaluate.Prepare(set.Panels[name], prices, industries, opts)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", name, err)
		}

		path := filepath.Join(outDir, fmt.Sprintf("%s_%s.csv", run.Meta.RunID, name))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := table.WriteCSV(f); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}

		renderJoinedPreview(name, table, previewRows)
		fmt.Printf("📄 %s\n", path)
	}
	return nil
}

func runFactorShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	run, err := loadRun(runFile)
	if err != nil {
		return err
	}
	if err := selectFactor(run); err != nil {
		return err
	}

	a, err := newApp(ctx, run)
	if err != nil {
		return err
	}
	defer a.close()

	stocks, err := a.universe(ctx, run)
	if err != nil {
		return err
	}
	from, to, err := run.Period.Range(time.Now())
	if err != nil {
		return err
	}

	for _, name := range run.FactorNames() {
		latest, err := a.factors.Latest(ctx, name)
		if err != nil {
			return err
		}
		if latest.IsZero() {
			fmt.Printf("%s: nothing stored\n", name)
			continue
		}
		p, err := a.factors.Fetch(ctx, stocks, from, to, name)
		if err != nil {
			return err
		}
		renderPanelTail(name, p, previewRows)
	}
	return nil
}
