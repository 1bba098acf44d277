package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
)

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// GrantPermissionCommand grants or revokes named permissions on an existing
// user.
type GrantPermissionCommand struct {
	Username     string
	Permissions  stringList
	Revoke       bool
	DatabasePath string
}

func NewGrantPermissionCommand() *GrantPermissionCommand {
	return &GrantPermissionCommand{}
}

func (cmd *GrantPermissionCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("grant-permission", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "User to change (required)")
	fs.Var(&cmd.Permissions, "perm", "Permission codename; repeatable (required)")
	fs.BoolVar(&cmd.Revoke, "revoke", false, "Revoke instead of grant")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the catalog database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s grant-permission [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Grant or revoke permissions.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s grant-permission -username ann -perm can_mark_returned -perm can_edit_catalog\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s grant-permission -username ann -perm can_edit_catalog -revoke\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" || len(cmd.Permissions) == 0 {
		fs.Usage()
		return fmt.Errorf("username and at least one permission are required")
	}

	return nil
}

func (cmd *GrantPermissionCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath, false)
	if err != nil {
		return err
	}
	defer db.Close()

	service := auth.NewService(db.Users, config.Auth{})

	user, err := service.GetUserByUsername(cmd.Username)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", cmd.Username, err)
	}

	verb := "Granted"
	for _, perm := range cmd.Permissions {
		if cmd.Revoke {
			verb = "Revoked"
			err = service.RevokePermission(user.ID, perm)
		} else {
			err = service.GrantPermission(user.ID, perm)
		}
		if err != nil {
			return fmt.Errorf("failed to change %s: %w", perm, err)
		}
	}

	fmt.Printf("%s %s for %q\n", verb, cmd.Permissions.String(), user.Username)
	return nil
}
