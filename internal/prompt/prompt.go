package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const PostalCodePrompt = "Please enter your zip code."

var ErrNoInput = errors.New("no postal code entered")

// Source supplies the postal code to search from.
type Source interface {
	PostalCode(ctx context.Context) (string, error)
}

// Static is a Source with a fixed answer, e.g. from a flag.
type Static string

func (s Static) PostalCode(ctx context.Context) (string, error) {
	code := strings.TrimSpace(string(s))
	if code == "" {
		return "", ErrNoInput
	}
	return code, nil
}

// Terminal asks on out and reads one line from in.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

func (t *Terminal) PostalCode(ctx context.Context) (string, error) {
	if _, err := fmt.Fprintln(t.out, PostalCodePrompt); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	// A read from a terminal cannot be interrupted, so on cancel the reader
	// stays blocked until input arrives or the process exits.
	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(t.in)
		if sc.Scan() {
			lines <- sc.Text()
			return
		}
		if err := sc.Err(); err != nil {
			errs <- fmt.Errorf("read postal code: %w", err)
			return
		}
		errs <- ErrNoInput
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errs:
		return "", err
	case line := <-lines:
		return Static(line).PostalCode(ctx)
	}
}
