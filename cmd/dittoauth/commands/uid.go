package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoauth/internal/cli/output"
)

var uidMechanism string

var uidCmd = &cobra.Command{
	Use:   "uid <username>",
	Short: "Print the id of a user attached to a mechanism",
	Long: `Look up a user in a mechanism's registry and print its id.

Fails if the user is not attached to the mechanism.

Examples:
  dittoauth uid Kubra
  dittoauth uid Ali --mechanism kerberos`,
	Args: cobra.ExactArgs(1),
	RunE: runUID,
}

func init() {
	uidCmd.Flags().StringVarP(&uidMechanism, "mechanism", "m", "", "mechanism kind (local|ldap|kerberos), default: active mechanism")
}

type uidResult struct {
	Mechanism string `json:"mechanism" yaml:"mechanism"`
	Username  string `json:"username" yaml:"username"`
	UID       int    `json:"uid" yaml:"uid"`
}

func runUID(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close(cmd.Context())

	m := s.sys.Context().Active()
	if uidMechanism != "" {
		if m, err = s.sys.Mechanism(uidMechanism); err != nil {
			return err
		}
	}

	username := args[0]
	id, ok := m.GetUID(username)
	if !ok {
		return fmt.Errorf("user %q is not attached to %s", username, m.Name())
	}

	if s.printer.Format() == output.FormatTable {
		s.printer.Println(strconv.Itoa(id))
		return nil
	}
	return s.printer.Print(uidResult{Mechanism: m.Name(), Username: username, UID: id})
}
