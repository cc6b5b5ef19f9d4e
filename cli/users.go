package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newUsersCommand(load configLoader) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}

	var password string
	readPassword := func(cmd *cobra.Command) (string, error) {
		if password != "" {
			return password, nil
		}
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		return readLine(cmd.InOrStdin())
	}

	create := &cobra.Command{
		Use:   "create USERNAME",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := load()
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd)
			if err != nil {
				return err
			}

			s, db, err := openStore(conf)
			if err != nil {
				return err
			}
			defer closeDB(db)

			user, err := s.CreateUser(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	create.Flags().StringVarP(&password, "password", "p", "", "password, read from stdin when omitted")

	changePassword := &cobra.Command{
		Use:   "change-password USERNAME",
		Short: "Set a new password, revoking the user's tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := load()
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd)
			if err != nil {
				return err
			}

			s, db, err := openStore(conf)
			if err != nil {
				return err
			}
			defer closeDB(db)

			if _, err := s.ChangePassword(cmd.Context(), args[0], pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password changed for %s\n", args[0])
			return nil
		},
	}
	changePassword.Flags().StringVarP(&password, "password", "p", "", "new password, read from stdin when omitted")

	remove := &cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := load()
			if err != nil {
				return err
			}
			s, db, err := openStore(conf)
			if err != nil {
				return err
			}
			defer closeDB(db)

			if err := s.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := load()
			if err != nil {
				return err
			}
			s, db, err := openStore(conf)
			if err != nil {
				return err
			}
			defer closeDB(db)

			all, err := s.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME")
			for _, user := range all {
				fmt.Fprintf(w, "%d\t%s\n", user.ID, user.Username)
			}
			return w.Flush()
		},
	}

	users.AddCommand(create, changePassword, remove, list)
	return users
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
