package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"
)

// ErrNoSelection is returned when input ends before a valid choice was made.
var ErrNoSelection = errors.New("no selection made")

// Choose asks the user to pick one of options and returns its index, or -1
// when the user cancels. On a terminal it renders an up/down arrow list;
// otherwise it falls back to a numbered prompt on stdin.
func Choose(label string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("no options to select from")
	}
	fd := int(os.Stdin.Fd())
	if runtime.GOOS == "windows" || !term.IsTerminal(fd) {
		return ChooseNumber(os.Stdin, os.Stdout, label, options)
	}
	return chooseArrows(fd, label, options)
}

// ChooseNumber prints a numbered list and keeps reading until it gets a
// number between 1 and len(options), or 0 to cancel (returned as -1).
func ChooseNumber(in io.Reader, out io.Writer, label string, options []string) (int, error) {
	fmt.Fprintln(out, label)
	for i, opt := range options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
	}
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "(1~%d/0=Cancel) > ", len(options))
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return -1, err
			}
			return -1, ErrNoSelection
		}
		v, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
		if err != nil || v < 0 || v > len(options) {
			continue
		}
		return v - 1, nil
	}
}

func chooseArrows(fd int, label string, options []string) (int, error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return ChooseNumber(os.Stdin, os.Stdout, label, options)
	}
	defer term.Restore(fd, state)

	selected := 0
	height := len(options) + 2
	redraw := func(first bool) {
		fmt.Print("\x1b[?25l")
		defer fmt.Print("\x1b[?25h")
		if !first {
			fmt.Printf("\x1b[%dA", height)
		}
		fmt.Printf("\r\x1b[K%s\r\n", label)
		for i, opt := range options {
			cursor := "  "
			if i == selected {
				cursor = "> "
			}
			fmt.Printf("\r\x1b[K%s%s\r\n", cursor, opt)
		}
		fmt.Print("\r\x1b[KUse ↑/↓ or 1-9, Enter to select, q to cancel\r\n")
	}

	redraw(true)
	reader := bufio.NewReader(os.Stdin)
	for {
		k, err := readKey(reader)
		if err != nil {
			return -1, err
		}
		switch {
		case k == keyCancel:
			return -1, nil
		case k == keyEnter:
			return selected, nil
		case k == keyUp && selected > 0:
			selected--
			redraw(false)
		case k == keyDown && selected < len(options)-1:
			selected++
			redraw(false)
		case k >= keyDigit && int(k-keyDigit) < len(options):
			selected = int(k - keyDigit)
			redraw(false)
		}
	}
}

type key int

const (
	keyOther key = iota
	keyUp
	keyDown
	keyEnter
	keyCancel
	// keyDigit+i is the digit key selecting option i.
	keyDigit
)

// readKey decodes one keypress from raw terminal input. An escape byte with
// nothing buffered behind it is a bare Esc, which cancels.
func readKey(r *bufio.Reader) (key, error) {
	b, err := r.ReadByte()
	if err != nil {
		return keyOther, err
	}
	switch {
	case b == 'q' || b == 'Q' || b == 0x03: // 0x03 is Ctrl-C in raw mode
		return keyCancel, nil
	case b == '\r' || b == '\n':
		return keyEnter, nil
	case b >= '1' && b <= '9':
		return keyDigit + key(b-'1'), nil
	case b != 0x1b:
		return keyOther, nil
	}

	if r.Buffered() == 0 {
		return keyCancel, nil
	}
	next, _ := r.ReadByte()
	if next != '[' || r.Buffered() == 0 {
		return keyOther, nil
	}
	switch dir, _ := r.ReadByte(); dir {
	case 'A':
		return keyUp, nil
	case 'B':
		return keyDown, nil
	}
	return keyOther, nil
}

// Width returns the terminal width of stdout, or 80 when it is not a terminal.
func Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// Rule returns a separator line of ch spanning width columns.
func Rule(ch string, width int) string {
	if width < 1 {
		return ""
	}
	return strings.Repeat(ch, width)
}
