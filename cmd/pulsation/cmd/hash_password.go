package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/searchktools/pulsation/core/middleware"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Generate an argon2id hash for auth.users",
	Long: `Generate an argon2id hash of a password for use in config.

Example:
  pulsation hash-password "s3cret"
  # Output: $argon2id$v=19$m=65536,t=1,p=...

Security note: The password will appear in shell history.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := middleware.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
