package main

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// readPassword prompts on stderr and reads a password without echo.
// Caller must clear the returned slice.
func readPassword(prompt string) ([]byte, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("stdin is not a terminal: run interactively to enter password")
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	return raw, nil
}

// readNewPassword asks twice and requires both entries to match
func readNewPassword() ([]byte, error) {
	first, err := readPassword("New wallet password: ")
	if err != nil {
		return nil, err
	}
	second, err := readPassword("Repeat password: ")
	if err != nil {
		clear(first)
		return nil, err
	}
	defer clear(second)

	if string(first) != string(second) {
		clear(first)
		return nil, errors.New("passwords do not match")
	}
	return first, nil
}
