package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/tchat/internal"
	"github.com/peterh/liner"
	"golang.org/x/term"
)

const historyFileName = "history"

// lineReader reads user input one line at a time
type lineReader interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// newLineReader uses liner on an interactive terminal and a plain scanner
// otherwise. historyDir, when set, keeps the liner history between runs.
func newLineReader(in io.Reader, out io.Writer, historyDir string) lineReader {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state := liner.NewLiner()
		state.SetCtrlCAborts(true)
		r := &terminalReader{State: state}
		if historyDir != "" {
			r.historyPath = filepath.Join(historyDir, historyFileName)
			if hf, err := os.Open(r.historyPath); err == nil {
				_, _ = state.ReadHistory(hf)
				hf.Close()
			}
		}
		return r
	}
	return &scanReader{scanner: bufio.NewScanner(in), out: out}
}

// terminalReader is a liner session that saves its history on close
type terminalReader struct {
	*liner.State
	historyPath string
}

func (r *terminalReader) Close() error {
	if r.historyPath != "" {
		if hf, err := os.OpenFile(r.historyPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			if _, err := r.WriteHistory(hf); err != nil {
				internal.LogDebug("Failed to save history: %v", err)
			}
			hf.Close()
		}
	}
	return r.State.Close()
}

// scanReader reads piped input
type scanReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (r *scanReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scanReader) PasswordPrompt(prompt string) (string, error) {
	line, err := r.Prompt(prompt)
	if err == nil {
		fmt.Fprintln(r.out)
	}
	return line, err
}

func (r *scanReader) AppendHistory(string) {}

func (r *scanReader) Close() error { return nil }

// isAbort reports whether the user ended input with Ctrl-C or Ctrl-D
func isAbort(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted)
}

// confirm asks a yes/no question; anything but y or yes declines
func confirm(lines lineReader, question string) bool {
	answer, err := lines.Prompt(question + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// confirmFunc adapts confirm to the controller's callback; assumeYes skips the question
func confirmFunc(lines lineReader, assumeYes bool) internal.ConfirmFunc {
	return func(question string) bool {
		if assumeYes {
			return true
		}
		return confirm(lines, question)
	}
}
