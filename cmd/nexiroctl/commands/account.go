package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nexiro/internal/domain"
	"nexiro/internal/sqlinline"
)

var (
	emailFlag string
	planFlag  string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the credit ledger and credential tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		svc, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()
		if svc.SQL == nil {
			return errors.New("DATABASE_URL is required")
		}
		if _, err := svc.SQL.Exec(ctx, sqlinline.QCreateCreditSchema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show the ledger balance of an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := requireEmail()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		svc, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()
		account, err := svc.Ledger.Balance(ctx, email)
		if err != nil {
			return fmt.Errorf("load balance: %w", err)
		}
		return printJSON(cmd, account)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Switch an account to another plan",
	Long: `Switch an account to another plan. The balance resets to the new plan's
allotment: FREE=0, STARTER=40, PRO=150. The account is opened on the FREE
plan first when the ledger has never seen it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := requireEmail()
		if err != nil {
			return err
		}
		plan, err := domain.ParsePlan(planFlag)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		svc, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()
		if _, err := svc.Ledger.Open(ctx, email, domain.PlanFree); err != nil {
			return fmt.Errorf("open account: %w", err)
		}
		account, err := svc.Ledger.ChangePlan(ctx, email, plan)
		if err != nil {
			return fmt.Errorf("change plan: %w", err)
		}
		return printJSON(cmd, account)
	},
}

func init() {
	creditsCmd.Flags().StringVar(&emailFlag, "email", "", "account email")
	planCmd.Flags().StringVar(&emailFlag, "email", "", "account email")
	planCmd.Flags().StringVar(&planFlag, "plan", "pro", "plan to assign (free, starter, pro)")
}

func requireEmail() (string, error) {
	email := strings.ToLower(strings.TrimSpace(emailFlag))
	if email == "" {
		return "", errors.New("--email is required")
	}
	return email, nil
}
