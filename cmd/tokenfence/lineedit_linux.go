//go:build linux

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// readInteractiveLine reads one line from stdin. On a TTY the terminal is
// switched to raw mode so backspace editing works without canonical-mode
// quirks; piped input falls back to buffered reads.
func readInteractiveLine(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		// Not a terminal.
		return readBufferedLine(prompt)
	}

	newState := *oldState
	newState.Lflag &^= unix.ICANON | unix.ECHO
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &newState); err != nil {
		return "", err
	}
	defer func() {
		_ = unix.IoctlSetTermios(fd, unix.TCSETS, oldState)
	}()

	fmt.Print(prompt)
	line := make([]byte, 0, 256)
	var buf [1]byte
	for {
		n, err := os.Stdin.Read(buf[:])
		if err != nil {
			return "", err
		}
		if n == 0 {
			continue
		}
		switch c := buf[0]; {
		case c == '\r' || c == '\n':
			fmt.Print("\r\n")
			return string(line), nil
		case c == 0x04: // ctrl-D
			if len(line) == 0 {
				fmt.Print("\r\n")
				return "", io.EOF
			}
		case c == 0x7f || c == '\b':
			if len(line) > 0 {
				line = line[:len(line)-1]
				fmt.Print("\b \b")
			}
		case c >= 0x20:
			line = append(line, c)
			fmt.Print(string(c))
		}
	}
}

func readBufferedLine(prompt string) (string, error) {
	fmt.Print(prompt)
	r := bufio.NewReader(os.Stdin)
	s, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	if s == "" && err == io.EOF {
		return "", io.EOF
	}
	return trimTrailingNewline(s), nil
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
