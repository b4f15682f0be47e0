// Package cli дерево команд navatar
package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// shownError ошибка, о которой пользователь уже получил сообщение
type shownError struct{ error }

func (e shownError) Unwrap() error { return e.error }

// NewRootCmd собирает корневую команду
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "navatar",
		Short:         "Booking and reminders for a shared Navatar robot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "load environment from this file instead of ./.env")
	root.PersistentFlags().StringVar(&opts.owner, "owner", "", "act as this owner id (overrides OWNER_ID and OWNER_TOKEN)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newTokenCmd(opts))
	root.AddCommand(newServerCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newBookCmd(opts))
	root.AddCommand(newCancelCmd(opts))
	root.AddCommand(newListCmd(opts))
	root.AddCommand(newSessionCmd(opts))

	return root
}

// Execute запускает CLI и завершает процесс с кодом 1 при ошибке
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		var shown shownError
		if !stderrors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
