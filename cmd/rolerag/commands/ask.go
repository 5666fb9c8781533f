package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/54b3r/rolerag/internal/logging"
)

// NewAskCmd constructs the `rolerag ask` command, which logs in and asks a
// single question in-process, without starting the HTTP server.
func NewAskCmd() *cobra.Command {
	var username string
	var docsOnly bool

	cmd := &cobra.Command{
		Use:   "ask --username <name> [question]",
		Short: "Ask a question as a user from the credentials file",
		Long: `Log in as --username and ask one question against that user's role partition.

The request goes through the same token, authorization, retrieval, and
generation steps as POST /chat. The password is prompted for on a terminal,
or read from ROLERAG_PASSWORD, or from the first line of stdin.

Examples:
  rolerag ask --username alice "what is our on-call rotation?"
  rolerag ask --username bob --docs-only "leave policy"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.NewWithOptions(logging.Options{
				Level:  getEnvOrDefault("LOG_LEVEL", "warn"),
				Format: os.Getenv("LOG_FORMAT"),
				Output: cmd.ErrOrStderr(),
			})
			ctx = logging.WithLogger(ctx, log)

			password := os.Getenv("ROLERAG_PASSWORD")
			if password == "" {
				var err error
				password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
			}

			a, err := buildApp(ctx, log, false)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.Close()

			tok, err := a.service.Login(ctx, username, password)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			out := cmd.OutOrStdout()
			if docsOnly {
				docs, err := a.service.Retrieve(ctx, tok.AccessToken, args[0])
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				for i, d := range docs {
					fmt.Fprintf(out, "[%d] %s\n\n", i+1, d)
				}
				return nil
			}

			resp, err := a.service.Chat(ctx, tok.AccessToken, args[0])
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			if resp.Degraded {
				log.Warn("ask: answer degraded", slog.Any("error", resp.Failure))
			}
			fmt.Fprintln(out, resp.Answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username from the credentials file")
	cmd.Flags().BoolVar(&docsOnly, "docs-only", false, "Print the retrieved documents instead of generating an answer")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}
