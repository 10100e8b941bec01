package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/abihf/facelog/backend"
	"github.com/abihf/facelog/config"
	"github.com/abihf/facelog/logging"
	"github.com/abihf/facelog/users"
)

var registerUserCmd = &cobra.Command{
	Use:   "register-user",
	Short: "Create a user account on the backend",
	Long: `Registers a new OWNER or BUYER account. OWNER accounts need a first and
last name. The password is read from the terminal without echo, or from the
first line of stdin when it is not a terminal.`,
	Args: cobra.NoArgs,
	RunE: runRegisterUser,
}

func init() {
	f := registerUserCmd.Flags()
	f.String("username", "", "account username")
	f.String("email", "", "account email")
	f.String("role", string(users.RoleBuyer), "OWNER or BUYER")
	f.String("first-name", "", "first name (OWNER only)")
	f.String("last-name", "", "last name (OWNER only)")
	rootCmd.AddCommand(registerUserCmd)
}

func runRegisterUser(cmd *cobra.Command, _ []string) error {
	conf := config.Load(configFile)
	log := logging.New(conf, os.Stderr)

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	reg := users.Registration{
		Username:  mustGetString(cmd, "username"),
		Email:     mustGetString(cmd, "email"),
		Password:  password,
		Role:      users.Role(mustGetString(cmd, "role")),
		FirstName: mustGetString(cmd, "first-name"),
		LastName:  mustGetString(cmd, "last-name"),
	}

	client, err := backend.New(conf.BaseURL, backend.WithLogger(log))
	if err != nil {
		return err
	}

	res, err := client.RegisterUser(cmd.Context(), reg)
	if err != nil {
		var verr users.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", field, msg)
			}
		}
		return err
	}
	if res.Body == nil {
		return errors.Errorf("registration failed (status %d): %s", res.StatusCode, res.Raw)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered %s (%s) as %s, id %s\n",
		res.Body.Username, res.Body.Email, res.Body.Role, res.Body.ID)
	return nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", errors.Wrap(err, "could not read password")
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "could not read password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// mustGetString panics when the flag is not defined, which is a programming
// error.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}
