package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var keyFlag string

var geminiKeyCmd = &cobra.Command{
	Use:   "geminikey",
	Short: "Manage the Gemini API key stored in the database",
}

var geminiKeySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the Gemini API key used when GEMINI_API_KEY is unset",
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.TrimSpace(keyFlag)
		if key == "" {
			key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		}
		if key == "" {
			return errors.New("GEMINI API key is required via --key or environment")
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		svc, err := openLedger(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()
		if svc.Credentials == nil {
			return errors.New("DATABASE_URL is required")
		}
		if err := svc.Credentials.SetGeminiAPIKey(ctx, key); err != nil {
			return fmt.Errorf("store gemini api key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "GEMINI API key stored successfully")
		return nil
	},
}

func init() {
	geminiKeySetCmd.Flags().StringVar(&keyFlag, "key", "", "API key (falls back to GEMINI_API_KEY)")
	geminiKeyCmd.AddCommand(geminiKeySetCmd)
}
