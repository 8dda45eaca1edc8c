package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/internal/cli/output"
	"github.com/marmos91/dittoauth/pkg/identity"
	"github.com/marmos91/dittoauth/pkg/system"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect the user directory",
	Long: `Inspect the users defined in the configuration file.

Subcommands:
  list    List users in insertion order with their attached mechanisms
  check   Check whether a username is in the directory`,
}

var usersListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List directory users",
	Args:    cobra.NoArgs,
	RunE:    runUsersList,
}

var usersCheckCmd = &cobra.Command{
	Use:   "check <username>",
	Short: "Check whether a username is in the directory",
	Long: `Scan every directory entry for the given username and report the
outcome per entry.

Examples:
  dittoauth users check Kubra
  dittoauth users check Kubra --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersCheck,
}

func init() {
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersCheckCmd)
}

// userView is the printable form of a directory user.
type userView struct {
	Username        string   `json:"username" yaml:"username"`
	UID             int      `json:"uid" yaml:"uid"`
	Mechanisms      []string `json:"mechanisms" yaml:"mechanisms"`
	LastMechanism   string   `json:"last_mechanism,omitempty" yaml:"last_mechanism,omitempty"`
	Authentications int      `json:"authentications" yaml:"authentications"`
}

type userList []userView

func (l userList) Headers() []string {
	return []string{"Username", "UID", "Mechanisms", "Last mechanism"}
}

func (l userList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, u := range l {
		last := u.LastMechanism
		if last == "" {
			last = "-"
		}
		mechs := strings.Join(u.Mechanisms, ", ")
		if mechs == "" {
			mechs = "-"
		}
		rows = append(rows, []string{u.Username, strconv.Itoa(u.UID), mechs, last})
	}
	return rows
}

func newUserList(sys *system.System) userList {
	users := sys.Directory().List()
	list := make(userList, 0, len(users))
	for _, u := range users {
		list = append(list, userView{
			Username:        u.Username(),
			UID:             u.UID(),
			Mechanisms:      sys.AttachedTo(u),
			LastMechanism:   u.LastMechanismName(),
			Authentications: u.AuthenticationCount(),
		})
	}
	return list
}

func runUsersList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())

	list := newUserList(s.sys)
	if len(list) == 0 && s.printer.Format() == output.FormatTable {
		s.printer.Warning("No users configured")
		return nil
	}
	return s.printer.Print(list)
}

// checkView renders a directory check as one row per scanned entry.
type checkView struct {
	identity.CheckResult
}

func (c checkView) Headers() []string {
	return []string{"Entry", "Match"}
}

func (c checkView) Rows() [][]string {
	rows := make([][]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		match := "no"
		if e.Match {
			match = "yes"
		}
		rows = append(rows, []string{e.Username, match})
	}
	return rows
}

func runUsersCheck(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())

	res := s.sys.Directory().Check(args[0])

	if err := s.printer.Print(checkView{res}); err != nil {
		return err
	}
	if res.Found {
		s.printer.Success(fmt.Sprintf("User %q found", res.Username))
	} else {
		s.printer.Warning(fmt.Sprintf("User %q not found", res.Username))
	}
	return nil
}
