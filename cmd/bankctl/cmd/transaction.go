package cmd

import (
	"github.com/spf13/cobra"

	"github.com/warp/ledger-engine/ledger"
)

var depositCmd = &cobra.Command{
	Use:   "deposit <account> <amount>",
	Short: "Deposit into an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, ledger.Request{
			Kind:      ledger.OpDeposit,
			AccountID: ledger.AccountID(args[0]),
		}, args[1])
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <account> <amount>",
	Short: "Withdraw from an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, ledger.Request{
			Kind:      ledger.OpWithdrawal,
			AccountID: ledger.AccountID(args[0]),
		}, args[1])
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <from> <to> <amount>",
	Short: "Transfer between accounts",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, ledger.Request{
			Kind:           ledger.OpTransfer,
			AccountID:      ledger.AccountID(args[0]),
			CounterAccount: ledger.AccountID(args[1]),
		}, args[2])
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <account>",
	Short: "Show an account's transaction history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := repo.Records(cmd.Context(), ledger.AccountID(args[0]))
		if err != nil {
			return err
		}
		printRecords(records)
		return nil
	},
}

func runOperation(cmd *cobra.Command, req ledger.Request, amount string) error {
	m, err := parseAmount(amount)
	if err != nil {
		return err
	}
	req.Amount = m

	result, err := engine.Execute(cmd.Context(), req)
	if err != nil {
		return err
	}
	printRecords(result.Records)
	return nil
}
