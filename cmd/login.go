package cmd

import (
	"errors"
	"fmt"
	"strings"

	"cinebook-cli/service"
	"cinebook-cli/store"
	"github.com/go-playground/validator/v10"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var inputValidator = validator.New()

func newLoginCmd(rt *cli) *cobra.Command {
	var email string
	c := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				email, err = promptEmail()
				if err != nil {
					return err
				}
			} else if err := validateEmail(email); err != nil {
				return err
			}
			password, err := promptPassword()
			if err != nil {
				return err
			}

			res, err := rt.client.Login(cmd.Context(), strings.TrimSpace(email), password)
			if err != nil {
				if service.IsUnauthorized(err) {
					return errors.New("invalid email or password")
				}
				return fmt.Errorf("login: %w", err)
			}
			if err := rt.storage.Set(store.KeyToken, res.Token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			if err := rt.storage.Set(store.KeyRole, string(res.Role)); err != nil {
				return fmt.Errorf("save role: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", strings.TrimSpace(email), res.Role)
			return nil
		},
	}
	c.Flags().StringVar(&email, "email", "", "account email; prompted when empty")
	return c
}

func newLogoutCmd(rt *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token and seat selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, key := range []string{store.KeyToken, store.KeyRole, store.KeySelectedSeats} {
				if err := rt.storage.Delete(key); err != nil {
					return fmt.Errorf("clear %s: %w", key, err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func promptEmail() (string, error) {
	prompt := promptui.Prompt{
		Label:    "Email",
		Validate: validateEmail,
	}
	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("read email: %w", err)
	}
	return strings.TrimSpace(value), nil
}

func promptPassword() (string, error) {
	prompt := promptui.Prompt{
		Label: "Password",
		Mask:  '*',
		Validate: func(input string) error {
			if input == "" {
				return errors.New("password is required")
			}
			return nil
		},
	}
	value, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return value, nil
}

func validateEmail(input string) error {
	if err := inputValidator.Var(strings.TrimSpace(input), "required,email"); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}
