package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/ledger-engine/ledger"
)

var openingBalance string

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create <id> <owner>",
	Short: "Open a new account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		balance := ledger.NewMoneyFromInt(0)
		if openingBalance != "" {
			m, err := parseAmount(openingBalance)
			if err != nil {
				return err
			}
			if m.IsNegative() {
				return fmt.Errorf("opening balance must not be negative")
			}
			balance = m
		}

		account := ledger.Account{
			ID:        ledger.AccountID(args[0]),
			Owner:     args[1],
			Balance:   balance,
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.CreateAccount(cmd.Context(), account); err != nil {
			return err
		}
		fmt.Printf("opened account %s for %s with balance %s\n", account.ID, account.Owner, account.Balance)
		return nil
	},
}

var accountShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an account and its balance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := repo.Get(cmd.Context(), ledger.AccountID(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("%s  owner=%s  balance=%s  opened=%s\n",
			account.ID, account.Owner, account.Balance, account.CreatedAt.Format("2006-01-02"))
		return nil
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		accounts, err := repo.Accounts(cmd.Context())
		if err != nil {
			return err
		}
		for _, a := range accounts {
			fmt.Printf("%s  owner=%s  balance=%s\n", a.ID, a.Owner, a.Balance)
		}
		return nil
	},
}

func init() {
	accountCreateCmd.Flags().StringVar(&openingBalance, "balance", "", "opening balance (default 0)")
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountShowCmd)
	accountCmd.AddCommand(accountListCmd)
}
