package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/54b3r/rolerag/internal/auth"
)

// NewHashPasswordCmd constructs the `rolerag hash-password` command, which
// prints an argon2id hash suitable for the credentials file.
func NewHashPasswordCmd() *cobra.Command {
	var username string
	var role string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for the credentials file",
		Long: `Read a password and print its argon2id hash.

On a terminal the password is prompted for without echo; otherwise the first
line of stdin is used. With --username and --role, a complete users.yaml
entry is printed instead of the bare hash.

Examples:
  rolerag hash-password
  echo -n 's3cret' | rolerag hash-password --username alice --role engineering`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (username == "") != (role == "") {
				return fmt.Errorf("hash-password: --username and --role must be given together")
			}
			if role != "" {
				if err := auth.DefaultPolicy().Authorize(role); err != nil {
					return fmt.Errorf("hash-password: role %q is not one of %v", role, auth.DefaultRoles)
				}
			}

			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return fmt.Errorf("hash-password: %w", err)
			}
			if password == "" {
				return fmt.Errorf("hash-password: password must not be empty")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash-password: %w", err)
			}

			out := cmd.OutOrStdout()
			if username == "" {
				_, err = fmt.Fprintln(out, hash)
				return err
			}
			return writeCredentialEntry(out, auth.Credential{Username: username, Role: role, PasswordHash: hash})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Emit a users.yaml entry for this username")
	cmd.Flags().StringVar(&role, "role", "", "Role for the emitted users.yaml entry")

	return cmd
}

// writeCredentialEntry encodes c as a single-item users.yaml list.
func writeCredentialEntry(w io.Writer, c auth.Credential) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode([]auth.Credential{c}); err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	return enc.Close()
}

// readPassword prompts on prompt without echo when in is a terminal and
// otherwise reads one line from in.
func readPassword(in io.Reader, prompt io.Writer, label string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // fd fits in int
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
