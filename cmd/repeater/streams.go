package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// streams bundles the command's standard streams. fd is the terminal
// file descriptor of in, or -1 when in is not a terminal.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
	fd  int

	lines *bufio.Reader
}

func newStreams() streams {
	fd := -1
	if stdin := int(os.Stdin.Fd()); term.IsTerminal(stdin) {
		fd = stdin
	}
	return streams{in: os.Stdin, out: os.Stdout, err: os.Stderr, fd: fd}
}

func (s *streams) readLine(prompt string) (string, error) {
	fmt.Fprint(s.err, prompt)
	if s.lines == nil {
		s.lines = bufio.NewReader(s.in)
	}
	line, err := s.lines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword reads a secret without echo on a terminal, or a plain line
// from piped input.
func (s *streams) readPassword(prompt string) (string, error) {
	if s.fd < 0 {
		return s.readLine(prompt)
	}
	fmt.Fprint(s.err, prompt)
	pw, err := term.ReadPassword(s.fd)
	fmt.Fprintln(s.err)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
