package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrlokans/library-manager/internal/auth"
	"github.com/mrlokans/library-manager/internal/entrypoint"
)

// CreateAdminCommand creates an administrator account from the shell, as an
// alternative to the /setup page.
type CreateAdminCommand struct {
	LoginID      string
	FullName     string
	Email        string
	DatabasePath string

	// Password is prompted for when empty.
	Password string

	in  io.Reader
	out io.Writer
}

func NewCreateAdminCommand() *CreateAdminCommand {
	return &CreateAdminCommand{in: os.Stdin, out: os.Stdout}
}

func (cmd *CreateAdminCommand) Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: "Create an administrator account. The password is read from the terminal\n" +
			"without echo, or from the first line of stdin when it is not a terminal.",
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			app, err := openApp(cmd.DatabasePath)
			if err != nil {
				return err
			}
			defer app.Close()
			return cmd.Run(app)
		},
	}

	c.Flags().StringVar(&cmd.LoginID, "login", "admin", "Login id of the administrator")
	c.Flags().StringVar(&cmd.FullName, "name", "Administrator", "Full name")
	c.Flags().StringVar(&cmd.Email, "email", "", "Email address (required)")
	c.Flags().StringVar(&cmd.DatabasePath, "db", "", "Path to the SQLite database (defaults to DATABASE_PATH)")
	_ = c.MarkFlagRequired("email")
	return c
}

func (cmd *CreateAdminCommand) Run(app *entrypoint.App) error {
	if cmd.Password == "" {
		password, err := cmd.promptPassword()
		if err != nil {
			return err
		}
		cmd.Password = password
	}

	user, err := app.Auth.CreateAdmin(cmd.LoginID, cmd.FullName, cmd.Email, cmd.Password)
	if err != nil {
		return fmt.Errorf("failed to create administrator: %w", err)
	}

	fmt.Fprintf(cmd.out, "Created administrator %q (id %d)\n", user.Login(), user.ID)
	return nil
}

func (cmd *CreateAdminCommand) promptPassword() (string, error) {
	if f, ok := cmd.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := readPassword(cmd.out, f, "Password: ")
		if err != nil {
			return "", err
		}
		confirm, err := readPassword(cmd.out, f, "Confirm password: ")
		if err != nil {
			return "", err
		}
		if password != confirm {
			return "", fmt.Errorf("passwords do not match")
		}
		return password, nil
	}

	line, err := bufio.NewReader(cmd.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimSpace(line)
	if len(password) < auth.MinPasswordLength {
		return "", auth.ErrPasswordTooShort
	}
	return password, nil
}

// readPassword reads a password with masking
func readPassword(out io.Writer, f *os.File, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	bytePassword, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out) // Add newline after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(bytePassword)), nil
}
