package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vedran77/relaychat/internal/domain"
	"go.uber.org/zap"
)

func newReactCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "react <userId> <messageId> <emoji>",
		Short: "Toggle your emoji reaction on a message",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:2])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ch, err := opts.openChat(ctx, args[0], nil)
			if err != nil {
				return err
			}
			defer ch.Close()

			if _, err := ch.r.Load(ctx); err != nil {
				return err
			}
			err = ch.r.ToggleReaction(ctx, ids[0], args[2])
			msg, ok := ch.r.Cache().Get(ids[0])
			if !ok {
				return err
			}
			if err != nil {
				ch.log.Warn("reaction not fully applied", zap.Error(err))
			}

			state := "removed"
			if domain.HasReaction(msg.Reactions, ch.session.UserID, args[2]) {
				state = "added"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reaction %s %s on %s\n", args[2], state, ids[0])
			return err
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <userId> <messageId>...",
		Short: "Delete one or more messages from a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ch, err := opts.openChat(ctx, args[0], nil)
			if err != nil {
				return err
			}
			defer ch.Close()

			if len(ids) == 1 {
				err = ch.r.Delete(ctx, ids[0])
			} else {
				err = ch.r.DeleteMany(ctx, ids)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d message(s)\n", len(ids))
			return nil
		},
	}
}
