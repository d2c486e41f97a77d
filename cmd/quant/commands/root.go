package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "factorlab - 패널 팩터 분석 엔진",
	Long: `factorlab Unified CLI

가격/시가총액/재무 패널에서 팩터를 계산하고
평가용 테이블(forward return, 업종, winsorize, z-score, bucket)을 만듭니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant factor compute --run config/factor/kospi_volatility.yaml
  go run ./cmd/quant factor evaluate --run config/factor/kospi_volatility.yaml --out out/
  go run ./cmd/quant scheduler start --run config/factor/kospi_volatility.yaml
  go run ./cmd/quant test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
}
