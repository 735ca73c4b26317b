package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Zerodha Kite Connect session",
	}

	cmd.AddCommand(newAuthLoginCmd(app))
	cmd.AddCommand(newAuthStatusCmd(app))
	cmd.AddCommand(newAuthLogoutCmd(app))

	return cmd
}

func newAuthLoginCmd(app *App) *cobra.Command {
	var requestToken string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Zerodha",
		Long: `Without --request-token, prints the Kite login URL to visit. After
completing the browser login, re-run with the request token from the
redirect URL to establish and persist the session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Source == nil {
				return fmt.Errorf("no Zerodha credentials configured; edit credentials.toml or set KITE_API_KEY")
			}

			if requestToken == "" {
				// Login reports the URL as an error when no session exists
				if err := app.Source.Login(cmd.Context()); err != nil {
					fmt.Println(err.Error())
					return nil
				}
				color.Green("Already authenticated.")
				return nil
			}

			if err := app.Source.CompleteLogin(cmd.Context(), requestToken); err != nil {
				return err
			}
			app.Logger.Info().Msg("Session established")
			color.Green("Login successful. Session saved.")
			return nil
		},
	}

	cmd.Flags().StringVar(&requestToken, "request-token", "", "request token from the Kite redirect URL")

	return cmd
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Source == nil {
				color.Yellow("No credentials configured.")
				return nil
			}
			if app.Source.IsAuthenticated() {
				color.Green("Authenticated.")
			} else {
				color.Yellow("Not authenticated. Run 'oi-tracker auth login'.")
			}
			return nil
		},
	}
}

func newAuthLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the session and remove saved credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Source == nil {
				return nil
			}
			if err := app.Source.Logout(cmd.Context()); err != nil {
				return err
			}
			app.Logger.Info().Msg("Session invalidated")
			fmt.Println("Logged out.")
			return nil
		},
	}
}
