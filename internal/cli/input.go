package cli

import (
	"errors"
	"io"
	"os"
	"strings"
)

// readInput returns the contents of path, or of stdin when path is empty or
// "-" and stdin is piped.
func readInput(path string) (string, error) {
	if path != "" && path != "-" {
		b, err := os.ReadFile(path)
		return string(b), err
	}
	stat, err := os.Stdin.Stat()
	if path == "" && (err != nil || stat.Mode()&os.ModeCharDevice != 0) {
		return "", errors.New("input is required (file argument or stdin)")
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errors.New("input is empty")
	}
	return string(b), nil
}
