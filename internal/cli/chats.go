package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const previewWidth = 40

func newChatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List chats with their last message and unread count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := opts.session()
			if err != nil {
				return err
			}
			previews, err := c.ChatPreviews(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USER ID\tNAME\tUNREAD\tLAST MESSAGE")
			for _, p := range previews {
				last := "-"
				if p.LastMessage != nil {
					last = truncate(p.LastMessage.Content, previewWidth)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.User.ID, p.User.Name, p.UnreadCount, last)
			}
			return tw.Flush()
		},
	}
}

func newDeleteAccountCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete your account and every message you sent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete the account without --yes")
			}
			c, s, err := opts.session()
			if err != nil {
				return err
			}
			if err := c.DeleteProfile(cmd.Context()); err != nil {
				return err
			}
			if err := os.Remove(sessionPath(opts.stateDir)); err != nil && !os.IsNotExist(err) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", s.UserID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
