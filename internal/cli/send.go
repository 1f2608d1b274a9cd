package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vedran77/relaychat/internal/domain"
	"go.uber.org/zap"
)

func newSendCmd(opts *options) *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "send <userId> [text]",
		Short: "Send a text message or a file to a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			if filePath == "" && strings.TrimSpace(text) == "" {
				return fmt.Errorf("nothing to send, give a text or --file")
			}

			ctx := cmd.Context()
			ch, err := opts.openChat(ctx, args[0], nil)
			if err != nil {
				return err
			}
			defer ch.Close()

			var msg *domain.Message
			if filePath != "" {
				f, ferr := os.Open(filePath)
				if ferr != nil {
					return ferr
				}
				defer f.Close()
				msg, err = ch.r.SendFile(ctx, text, filepath.Base(filePath), f)
			} else {
				msg, err = ch.r.Send(ctx, text)
			}
			if msg == nil {
				return err
			}
			if err != nil {
				ch.log.Warn("message stored but not broadcast", zap.Error(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s\n", msg.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "attach a file")
	return cmd
}
