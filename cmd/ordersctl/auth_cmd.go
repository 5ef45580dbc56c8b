package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
)

func loginCmd() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and keep the session for later commands",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"ORDERS_PASSWORD"}, Required: true},
		},
		Action: withApp(func(c *cli.Context, a *app) error {
			current, err := a.auth.Login(c.Context, c.String("email"), c.String("password"))
			if err != nil {
				return failure(err)
			}
			fmt.Fprintf(a.out, "Bem-vindo, %s (%s)\n", current.Name, current.Role)
			if current.MustChangePassword {
				fmt.Fprintln(a.out, "Altere sua senha no primeiro acesso.")
			}
			return nil
		}),
	}
}

func logoutCmd() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the stored session",
		Action: withApp(func(c *cli.Context, a *app) error {
			a.auth.Logout(c.Context)
			fmt.Fprintln(a.out, "Sessão encerrada.")
			return nil
		}),
	}
}

func whoamiCmd() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Validate the stored session against the backend",
		Action: withApp(func(c *cli.Context, a *app) error {
			user, err := a.auth.ValidateToken(c.Context)
			if err != nil {
				return failure(err)
			}
			current, _ := a.auth.CurrentUser()
			sector := strings.TrimSpace(current.Sector)
			if !current.HasSector() {
				sector = "-"
			}
			fmt.Fprintf(a.out, "%s\t%s\t%s\t%s\n", user, current.Name, current.Role, sector)
			return nil
		}),
	}
}
