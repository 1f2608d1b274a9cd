// Package cli implements chatctl, a terminal client for relaychat.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vedran77/relaychat/internal/client"
	"github.com/vedran77/relaychat/internal/logging"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	apiURL   string
	relayURL string
	stateDir string
	verbose  bool
}

// NewRootCmd builds the chatctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "chatctl",
		Short: "Terminal client for relaychat",
		Long: `chatctl talks to a relaychat API server and relay. It can register,
log in, list users and chats, send messages and files, react, delete,
and follow a conversation live.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api", envOr("RELAYCHAT_API", "http://localhost:8080"), "API base URL (env RELAYCHAT_API)")
	flags.StringVar(&opts.relayURL, "relay", envOr("RELAY_URL", "ws://localhost:4001/ws"), "relay websocket URL, empty to disable (env RELAY_URL)")
	flags.StringVar(&opts.stateDir, "state-dir", defaultStateDir(), "directory holding the saved session")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newRegisterCmd(opts),
		newLoginCmd(opts),
		newUsersCmd(opts),
		newChatsCmd(opts),
		newSendCmd(opts),
		newWatchCmd(opts),
		newReactCmd(opts),
		newDeleteCmd(opts),
		newDeleteAccountCmd(opts),
	)
	return root
}

// Execute runs chatctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (o *options) logger() *zap.Logger {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	log, err := logging.New(level, "console", "chatctl")
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// session returns a client authenticated with the saved session.
func (o *options) session() (*client.Client, *Session, error) {
	s, err := LoadSession(o.stateDir)
	if err != nil {
		return nil, nil, err
	}
	return client.New(o.apiURL, client.WithToken(s.Token)), s, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".relaychat"
	}
	return filepath.Join(home, ".relaychat")
}
