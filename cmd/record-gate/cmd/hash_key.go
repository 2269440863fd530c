package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Record-Gate/Recordgate/internal/domain/auth"
)

var useArgon2id bool

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [api-key]",
	Short: "Generate a hash for an API key",
	Long: `Generate a hash of an API key for use in config.

The default output format is "sha256:<hex>" which can be used directly
in the auth.api_keys list. Pass --argon2id for a salted Argon2id hash.

Example:
  record-gate hash-key "my-secret-api-key"
  # Output: sha256:7d5e8c...

Security note: The key will appear in shell history.
Consider clearing history after use or using an environment variable:
  record-gate hash-key "$MY_API_KEY"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if useArgon2id {
			hash, err := auth.HashKeyArgon2id(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		}
		fmt.Println(auth.HashKey(args[0]))
		return nil
	},
}

func init() {
	hashKeyCmd.Flags().BoolVar(&useArgon2id, "argon2id", false, "Use Argon2id instead of SHA-256")
	rootCmd.AddCommand(hashKeyCmd)
}
