package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/region23/navatar/internal/identity"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate TOKEN_HASH_KEY and TOKEN_BLOCK_KEY values (base64)",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, block := identity.GenerateKeys()
			fmt.Fprintf(cmd.OutOrStdout(), "export TOKEN_HASH_KEY=%s\n", hash)
			fmt.Fprintf(cmd.OutOrStdout(), "export TOKEN_BLOCK_KEY=%s\n", block)
			return nil
		},
	}
}
