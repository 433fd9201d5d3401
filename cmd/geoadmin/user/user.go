package user

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/kcmvp/geoadmin/app"
	"github.com/kcmvp/geoadmin/auth"
	"github.com/kcmvp/geoadmin/cmd/internal"
	"github.com/kcmvp/geoadmin/sqlx"
	"github.com/spf13/cobra"
)

// UserCmd groups the account management commands.
var UserCmd = newUserCmd()

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage panel accounts. Passwords are read from the first line of stdin.",
	}
	cmd.AddCommand(newAddCmd(), newPasswdCmd())
	return cmd
}

func newAddCmd() *cobra.Command {
	var admin bool
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd, func(ctx context.Context, conn sqlx.Conn, users auth.Users, password string) error {
				if err := users.Add(ctx, conn, args[0], password, admin); err != nil {
					return err
				}
				role := map[bool]string{true: "admin", false: "user"}[admin]
				_, err := fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("%s %s created", role, args[0]))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "grant administrator rights")
	return cmd
}

func newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <username>",
		Short: "Replace the password of an account.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd, func(ctx context.Context, conn sqlx.Conn, users auth.Users, password string) error {
				err := users.SetPassword(ctx, conn, args[0], password)
				if errors.Is(err, sqlx.ErrKeyNotFound) {
					return fmt.Errorf("no such user %s", args[0])
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("password of %s updated", args[0]))
				return err
			})
		},
	}
}

type usersFunc func(ctx context.Context, conn sqlx.Conn, users auth.Users, password string) error

func withUsers(cmd *cobra.Command, fn usersFunc) error {
	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return err
	}
	settings, err := internal.Settings(cmd).Get()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	env, err := internal.Setup(ctx, settings, app.Settings.ValidateStore)
	if err != nil {
		return err
	}
	defer env.Close()
	return env.WithLease(ctx, func(conn sqlx.Conn) error {
		return fn(ctx, conn, auth.Users{Params: auth.DefaultArgon2Params()}, password)
	})
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	return password, nil
}
