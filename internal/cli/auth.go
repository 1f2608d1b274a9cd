package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vedran77/relaychat/internal/client"
)

func newRegisterCmd(opts *options) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client.New(opts.apiURL).Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			return saveAuth(cmd, opts, res)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCmd(opts *options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client.New(opts.apiURL).Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return saveAuth(cmd, opts, res)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func saveAuth(cmd *cobra.Command, opts *options, res *client.AuthResponse) error {
	err := SaveSession(opts.stateDir, &Session{
		UserID: res.User.ID,
		Name:   res.User.Name,
		Token:  res.AccessToken,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", res.User.Name, res.User.ID)
	return nil
}
