package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/region23/navatar/internal/validation"
)

func newTokenCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Issue a signed owner token for --owner (needs TOKEN_HASH_KEY and TOKEN_BLOCK_KEY)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateOwnerID(opts.owner); err != nil {
				return fmt.Errorf("--owner: %w", err)
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			codec, err := tokenCodec(cfg)
			if err != nil {
				return err
			}
			if codec == nil {
				return fmt.Errorf("TOKEN_HASH_KEY and TOKEN_BLOCK_KEY are not set; run `navatar keys` first")
			}
			token, err := codec.Issue(opts.owner)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export OWNER_TOKEN=%s\n", token)
			return nil
		},
	}
}
