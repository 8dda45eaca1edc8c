package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/internal/cli/output"
	"github.com/marmos91/dittoauth/internal/cli/prompt"
	"github.com/marmos91/dittoauth/pkg/auth"
)

var (
	authMechanism string
	authPassword  string
)

var authenticateCmd = &cobra.Command{
	Use:     "authenticate [username]",
	Aliases: []string{"auth", "login"},
	Short:   "Authenticate a user",
	Long: `Authenticate a user against a mechanism.

Without --mechanism the active mechanism from the configuration is used.
Without --password the password is prompted for (masked). Without a username
a user is selected interactively from the directory.

On success every user attached to the mechanism is notified.

Examples:
  dittoauth authenticate Kubra --password abc
  dittoauth authenticate Ali --mechanism kerberos
  dittoauth authenticate Oktay --mechanism ldap --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthenticate,
}

func init() {
	authenticateCmd.Flags().StringVarP(&authMechanism, "mechanism", "m", "", "mechanism kind (local|ldap|kerberos), default: active mechanism")
	authenticateCmd.Flags().StringVarP(&authPassword, "password", "p", "", "password (prompted if omitted)")
}

// authResult is the printable outcome of one authentication.
type authResult struct {
	Mechanism string   `json:"mechanism" yaml:"mechanism"`
	Username  string   `json:"username" yaml:"username"`
	Status    string   `json:"status" yaml:"status"`
	Notified  []string `json:"notified" yaml:"notified"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r authResult) pairs() [][2]string {
	notified := "-"
	if len(r.Notified) > 0 {
		notified = fmt.Sprint(r.Notified)
	}
	pairs := [][2]string{
		{"Mechanism", r.Mechanism},
		{"Username", r.Username},
		{"Status", r.Status},
		{"Notified", notified},
	}
	if r.Error != "" {
		pairs = append(pairs, [2]string{"Error", r.Error})
	}
	return pairs
}

func runAuthenticate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())

	username, err := resolveUsername(s, args)
	if err != nil {
		return err
	}

	password := authPassword
	if !cmd.Flags().Changed("password") {
		password, err = prompt.Password("Password")
		if err != nil {
			return err
		}
	}

	res, authErr := authenticate(cmd.Context(), s, authMechanism, username, password)

	if s.printer.Format() == output.FormatTable {
		if err := output.PrintKeyValues(s.printer.Writer(), res.pairs()); err != nil {
			return err
		}
	} else if err := s.printer.Print(res); err != nil {
		return err
	}

	if authErr != nil {
		return authErr
	}
	s.printer.Success(fmt.Sprintf("User %q authenticated on %s", username, res.Mechanism))
	return nil
}

// authenticate runs one authentication on kind, or on the active mechanism
// when kind is empty.
func authenticate(ctx context.Context, s *session, kind, username, password string) (authResult, error) {
	var (
		m      auth.Mechanism
		status auth.Status
		err    error
	)
	if kind == "" {
		m = s.sys.Context().Active()
		if m == nil {
			return authResult{Username: username, Status: auth.StatusAuthFailed.String()}, auth.ErrNoActiveMechanism
		}
		status, err = s.sys.Context().Authenticate(ctx, username, password)
	} else {
		m, err = s.sys.Mechanism(kind)
		if err != nil {
			return authResult{Username: username, Status: auth.StatusAuthFailed.String(), Error: err.Error()}, err
		}
		status, err = m.Authenticate(ctx, username, password)
	}

	res := authResult{
		Mechanism: m.Name(),
		Username:  username,
		Status:    status.String(),
		Notified:  []string{},
	}
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	for _, o := range m.Users() {
		res.Notified = append(res.Notified, o.Username())
	}
	return res, nil
}

func resolveUsername(s *session, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	users := s.sys.Directory().List()
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username())
	}
	return prompt.SelectString("User", names)
}
