package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

// CreateUserCommand adds an account from the command line, typically the
// first librarian of a fresh database.
type CreateUserCommand struct {
	Username     string
	Email        string
	Password     string
	Role         string
	Permissions  stringList
	DatabasePath string
	BcryptCost   int
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Login name (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", os.Getenv("LIBRARY_PASSWORD"), "Password (defaults to $LIBRARY_PASSWORD)")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleMember), "One of admin, librarian, member")
	fs.Var(&cmd.Permissions, "perm", "Permission codename to grant; repeatable")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the catalog database")
	fs.IntVar(&cmd.BcryptCost, "bcrypt-cost", 12, "bcrypt cost factor")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a user account.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s create-user -username ann -email ann@example.com -role librarian -perm can_mark_returned\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" || cmd.Email == "" || cmd.Password == "" {
		fs.Usage()
		return fmt.Errorf("username, email and password are required")
	}

	return nil
}

func (cmd *CreateUserCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath, false)
	if err != nil {
		return err
	}
	defer db.Close()

	service := auth.NewService(db.Users, config.Auth{BcryptCost: cmd.BcryptCost})

	user, err := service.CreateUser(cmd.Username, cmd.Email, cmd.Password, entities.UserRole(cmd.Role))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	for _, perm := range cmd.Permissions {
		if err := service.GrantPermission(user.ID, perm); err != nil {
			return fmt.Errorf("failed to grant %s: %w", perm, err)
		}
	}

	fmt.Printf("Created %s %q (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}
