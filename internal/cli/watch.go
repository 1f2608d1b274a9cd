package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vedran77/relaychat/internal/domain"
)

func newWatchCmd(opts *options) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <userId>",
		Short: "Follow a conversation, marking incoming messages read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var p *printer
			ch, err := opts.openChat(ctx, args[0], func(msgs []domain.Message) { p.print(msgs) })
			if err != nil {
				return err
			}
			defer ch.Close()
			p = newPrinter(cmd.OutOrStdout(), ch.session.UserID)

			fmt.Fprintf(cmd.OutOrStdout(), "Watching conversation %s (Ctrl+C to stop)\n", ch.conv.ID)
			return ch.r.Run(ctx, interval, ch.events())
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 3*time.Second, "how often to poll the API")
	return cmd
}

// printer writes the difference between successive views of a
// conversation.
type printer struct {
	out  io.Writer
	self uuid.UUID
	seen map[uuid.UUID]string
}

func newPrinter(out io.Writer, self uuid.UUID) *printer {
	return &printer{out: out, self: self, seen: make(map[uuid.UUID]string)}
}

func (p *printer) print(msgs []domain.Message) {
	visible := make(map[uuid.UUID]struct{}, len(msgs))

	for _, m := range msgs {
		visible[m.ID] = struct{}{}
		state := p.state(m)
		prev, known := p.seen[m.ID]
		p.seen[m.ID] = state

		switch {
		case !known:
			fmt.Fprintf(p.out, "%s %s: %s %s\n", m.CreatedAt.Local().Format("15:04:05"), p.author(m), body(m), state)
		case prev != state:
			fmt.Fprintf(p.out, "  %s %s\n", shortID(m.ID), state)
		}
	}

	var gone []uuid.UUID
	for id := range p.seen {
		if _, ok := visible[id]; !ok {
			gone = append(gone, id)
		}
	}
	slices.SortFunc(gone, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	for _, id := range gone {
		delete(p.seen, id)
		fmt.Fprintf(p.out, "  %s deleted\n", shortID(id))
	}
}

func (p *printer) author(m domain.Message) string {
	if m.UserID == p.self {
		return "you"
	}
	if m.User != nil && m.User.Name != "" {
		return m.User.Name
	}
	return shortID(m.UserID)
}

func (p *printer) state(m domain.Message) string {
	var b strings.Builder
	b.WriteString("[" + string(m.Status()) + "]")

	counts := make(map[string]int)
	var order []string
	for _, r := range m.Reactions {
		if counts[r.Emoji] == 0 {
			order = append(order, r.Emoji)
		}
		counts[r.Emoji]++
	}
	for _, e := range order {
		fmt.Fprintf(&b, " %s%d", e, counts[e])
	}
	return b.String()
}

func body(m domain.Message) string {
	switch {
	case m.FileName != nil:
		return fmt.Sprintf("%s [file %s]", m.Text, *m.FileName)
	case len(m.Audio) > 0:
		return "[voice message]"
	default:
		return m.Text
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
