package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wikimods/sanctiond/common"
)

func ProposeCommand() *cobra.Command {
	var (
		authorID   int64
		authorName string
		rename     bool
	)
	cmd := &cobra.Command{
		Use:   "propose [target] [reason]",
		Short: "Open a sanction vote against a target user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			controller, database, err := buildController(ctx)
			if err != nil {
				return err
			}
			defer database.Close()
			author := common.UserRef{ID: authorID, Name: authorName}
			s, err := controller.Write(ctx, author, args[0], rename, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("sanction %s proposed against %s, voting open until %s\n",
				s.ID, s.TargetName, s.Expiry)
			return nil
		},
	}
	cmd.Flags().Int64Var(&authorID, "author.id", 0, "user id of the proposer")
	cmd.Flags().StringVar(&authorName, "author.name", "", "username of the proposer")
	cmd.Flags().BoolVar(&rename, "rename", false, "propose a forced username change instead of a block")
	_ = cmd.MarkFlagRequired("author.id")
	_ = cmd.MarkFlagRequired("author.name")
	return cmd
}
