//go:build !linux

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

func readInteractiveLine(prompt string) (string, error) {
	fmt.Print(prompt)
	r := bufio.NewReader(os.Stdin)
	s, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	if s == "" && err == io.EOF {
		return "", io.EOF
	}
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s, nil
}
