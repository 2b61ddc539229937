package cli

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// stdin is replaced in tests.
var stdin io.Reader = os.Stdin

// terminalFd returns the descriptor of stdin when it is an interactive terminal.
func terminalFd() (int, bool) {
	f, ok := stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	return int(f.Fd()), true
}

// promptSecret asks for a value without echoing it when stdin is a terminal.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)
	if fd, ok := terminalFd(); ok {
		secret, err := term.ReadPassword(fd)
		cmd.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
