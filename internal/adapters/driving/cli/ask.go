package cli

import (
	"bufio"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// REPL commands.
const (
	replReset   = "/reset"
	replHistory = "/history"
	replQuit    = "/quit"
)

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Answer a question from the indexed documents and list the sources used.

With no question, docqa reads questions line by line until EOF, keeping
the conversation history for the session. On a terminal it shows a prompt.

Session commands:
  /reset    - Clear the conversation history
  /history  - List the questions asked so far
  /quit     - Leave the session`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	s, err := getSession(cmd.Context())
	if err != nil {
		return err
	}

	if len(args) > 0 {
		result := s.Query.Ask(cmd.Context(), strings.Join(args, " "))
		cmd.Println(result.Formatted)
		return nil
	}

	return runREPL(cmd, s)
}

func runREPL(cmd *cobra.Command, s *Session) error {
	interactive := stdinIsTerminal()
	if interactive {
		cmd.Println("Ask a question about your documents. /reset clears history, Ctrl+D exits.")
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if interactive {
			cmd.Print("\n❓ ")
		}
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case replQuit:
			return nil
		case replReset:
			s.History.ResetHistory()
			cmd.Println("History cleared.")
			continue
		case replHistory:
			printHistory(cmd, s)
			continue
		}

		if err := cmd.Context().Err(); err != nil {
			return nil
		}
		result := s.Query.Ask(cmd.Context(), line)
		cmd.Println(result.Formatted)
	}

	if interactive {
		cmd.Println()
	}
	return scanner.Err()
}

func printHistory(cmd *cobra.Command, s *Session) {
	turns := s.History.History()
	if len(turns) == 0 {
		cmd.Println("No questions asked yet.")
		return
	}
	for i, turn := range turns {
		cmd.Printf("%d. [%s] %s\n", i+1, turn.Status, turn.Question)
	}
}
