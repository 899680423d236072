// Package cmd implements the bankctl command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/notify"
	"github.com/warp/ledger-engine/store/sqlite"
)

var (
	dbPath string

	// Shared across subcommands, wired in PersistentPreRunE.
	repo   *sqlite.Store
	engine *ledger.Engine
)

var rootCmd = &cobra.Command{
	Use:   "bankctl",
	Short: "Operate the ledger engine from the command line",
	Long: `bankctl is a command-line interface to the banking ledger engine.

It opens accounts and performs deposits, withdrawals, transfers, and the
loan request/approve/repay flow against a SQLite-backed ledger.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		store, err := sqlite.New(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		repo = store
		engine = ledger.NewEngine(store, ledger.WithNotifier(notify.NewLog()))
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if engine != nil {
			engine.Wait()
		}
		if repo != nil {
			repo.Close()
		}
	},
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "bank.db", "SQLite database path")

	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(withdrawCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(loanCmd)
}

func parseAmount(s string) (ledger.Money, error) {
	m, err := ledger.ParseMoney(s)
	if err != nil {
		return ledger.Money{}, fmt.Errorf("invalid amount %q", s)
	}
	return m, nil
}

func printRecords(records []ledger.TransactionRecord) {
	for _, r := range records {
		line := fmt.Sprintf("%s  %-12s  account=%s  amount=%s  balance=%s",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.Kind, r.AccountID, r.Amount, r.BalanceAfter)
		if r.CounterAccount != "" {
			line += fmt.Sprintf("  counter=%s", r.CounterAccount)
		}
		if r.LoanStatus != "" {
			line += fmt.Sprintf("  status=%s", r.LoanStatus)
		}
		fmt.Println(line, " id="+string(r.ID))
	}
}
