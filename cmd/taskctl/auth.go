package main

import (
	"errors"

	"github.com/spf13/cobra"

	"taskboard/internal/client"
)

func newLoginCmd(a *app) *cobra.Command {
	var idToken, token string
	cmd := &cobra.Command{
		Use:     "login",
		GroupID: "session",
		Short:   "Sign in with a Google ID token or an existing API token",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (idToken == "") == (token == "") {
				return errors.New("pass exactly one of --id-token or --token")
			}
			ctx := cmd.Context()
			s := session{API: a.apiURL()}

			if idToken != "" {
				res, err := client.New(s.API).LoginGoogle(ctx, idToken)
				if err != nil {
					return err
				}
				s.Token, s.UserID, s.Name, s.Email = res.Token, res.UserID, res.Name, res.Email
			} else {
				me, err := client.New(s.API, client.WithToken(token)).Me(ctx)
				if err != nil {
					return err
				}
				s.Token, s.UserID, s.Name, s.Email = token, me.ID, me.Name, me.Email
			}

			if err := saveSession(a.sessionPath, s); err != nil {
				return err
			}
			a.session = s
			return a.emit(s, func() { printSuccess(a.out, "logged in as %s <%s>", s.Name, s.Email) })
		},
	}
	cmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token to exchange")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token issued by the API")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		GroupID: "session",
		Short:   "Forget the stored session",
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := clearSession(a.sessionPath); err != nil {
				return err
			}
			a.session = session{}
			printSuccess(a.out, "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		GroupID: "session",
		Short:   "Show the signed-in user",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := a.api()
			if err != nil {
				return err
			}
			me, err := api.Me(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(me, func() {
				printInfo(a.out, "%s <%s> role=%s id=%s", me.Name, me.Email, me.RoleName, me.ID)
			})
		},
	}
}
