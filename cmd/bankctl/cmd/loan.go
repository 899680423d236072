package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/ledger-engine/ledger"
)

var loanCmd = &cobra.Command{
	Use:   "loan",
	Short: "Request, settle, and repay loans",
}

var loanRequestCmd = &cobra.Command{
	Use:   "request <account> <amount>",
	Short: "Record a loan request (pending until approved)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, ledger.Request{
			Kind:      ledger.OpLoan,
			AccountID: ledger.AccountID(args[0]),
		}, args[1])
	},
}

var loanApproveCmd = &cobra.Command{
	Use:   "approve <recordID>",
	Short: "Approve a pending loan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := engine.ApproveLoan(cmd.Context(), ledger.RecordID(args[0])); err != nil {
			return err
		}
		fmt.Printf("loan %s approved\n", args[0])
		return nil
	},
}

var loanDenyCmd = &cobra.Command{
	Use:   "deny <recordID>",
	Short: "Deny a pending loan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := engine.DenyLoan(cmd.Context(), ledger.RecordID(args[0])); err != nil {
			return err
		}
		fmt.Printf("loan %s denied\n", args[0])
		return nil
	},
}

var loanRepayCmd = &cobra.Command{
	Use:   "repay <account> <amount>",
	Short: "Repay an approved loan (withdrawal-style)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, ledger.Request{
			Kind:      ledger.OpLoanPaid,
			AccountID: ledger.AccountID(args[0]),
		}, args[1])
	},
}

func init() {
	loanCmd.AddCommand(loanRequestCmd)
	loanCmd.AddCommand(loanApproveCmd)
	loanCmd.AddCommand(loanDenyCmd)
	loanCmd.AddCommand(loanRepayCmd)
}
