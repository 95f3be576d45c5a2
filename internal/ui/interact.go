package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// EditInEditor opens $VISUAL or $EDITOR on initial and returns the result;
// without an editor it reads replacement lines from stdin.
func EditInEditor(initial string) (string, error) {
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		fmt.Println("\nEnter the new message, end with a line containing only '.':")
		return ReadUntilDot(os.Stdin, os.Stdout, initial)
	}

	tmp, err := os.CreateTemp("", "gcm-*.txt")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(initial); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "write temp file")
	}
	tmp.Close()

	fields := strings.Fields(editor)
	cmd := exec.Command(fields[0], append(fields[1:], tmp.Name())...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "run editor %q", editor)
	}

	b, err := os.ReadFile(tmp.Name())
	if err != nil {
		return "", errors.Wrap(err, "read edited message")
	}
	if strings.TrimSpace(string(b)) == "" {
		return initial, nil
	}
	return strings.TrimRight(string(b), "\n"), nil
}

// ReadUntilDot reads lines until one containing only "." and returns them
// joined. Blank input keeps initial.
func ReadUntilDot(in io.Reader, out io.Writer, initial string) (string, error) {
	fmt.Fprintln(out, "--- current ---")
	fmt.Fprintln(out, initial)
	fmt.Fprintln(out, "---------------")
	var lines []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		t := sc.Text()
		if strings.TrimSpace(t) == "." {
			break
		}
		lines = append(lines, t)
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	txt := strings.Join(lines, "\n")
	if strings.TrimSpace(txt) == "" {
		return initial, nil
	}
	return txt, nil
}
