package commands

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// prompter asks for a single value, re-asking until validate passes
type prompter func(label string, secret bool, validate func(string) error) (string, error)

// terminalPrompter prompts on the terminal, and refuses when stdin is piped
func terminalPrompter(label string, secret bool, validate func(string) error) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("%s is required in non-interactive mode", label)
	}

	prompt := promptui.Prompt{
		Label:    label,
		Validate: promptui.ValidateFunc(validate),
	}
	if secret {
		prompt.Mask = '*'
	}

	value, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", fmt.Errorf("cancelled")
		}
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}
	return value, nil
}

// fill prompts for *value when it is empty
func fill(ask prompter, value *string, label string, secret bool, validate func(string) error) error {
	if *value != "" {
		return nil
	}
	v, err := ask(label, secret, validate)
	if err != nil {
		return err
	}
	*value = v
	return nil
}

// askNewPassword prompts for a password twice and checks both entries match
func askNewPassword(ask prompter, validate func(string) error) (string, error) {
	password, err := ask("Password", true, validate)
	if err != nil {
		return "", err
	}
	confirm, err := ask("Confirm password", true, nil)
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}
