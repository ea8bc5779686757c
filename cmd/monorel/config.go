package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rohankatakam/monorel/internal/config"
	errs "github.com/rohankatakam/monorel/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage monorel configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check monorel.yaml for errors",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <registry> <field>",
	Short: "Store a registry secret in the OS keychain",
	Long: `Store a registry credential (token, password or secretAccessKey) in the
OS keychain so it does not have to live in monorel.yaml. The value is read
from the terminal without echo, or from stdin when piped.

Examples:
  monorel config set-secret npm-public token
  echo "$NEXUS_PASSWORD" | monorel config set-secret nexus password`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSetSecret,
}

var configDeleteSecretCmd = &cobra.Command{
	Use:   "delete-secret <registry> <field>",
	Short: "Remove a registry secret from the OS keychain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keyring()
		if err != nil {
			return err
		}
		return km.DeleteRegistrySecret(args[0], args[1])
	},
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store the GitHub token in the OS keychain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keyring()
		if err != nil {
			return err
		}
		token, err := readSecret("GitHub token: ")
		if err != nil {
			return err
		}
		if err := km.SetGitHubToken(token); err != nil {
			return err
		}
		fmt.Println("✓ GitHub token stored in keychain")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configSetSecretCmd)
	configCmd.AddCommand(configDeleteSecretCmd)
	configCmd.AddCommand(configSetTokenCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	res := cfg.Validate()
	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if res.HasErrors() {
		return errs.ConfigError(res.Error())
	}
	fmt.Printf("✓ %d projects, %d release groups, %d registries\n",
		len(cfg.Projects), len(cfg.ReleaseGroups), len(cfg.Registries))
	return nil
}

func runConfigSetSecret(cmd *cobra.Command, args []string) error {
	registry, field := args[0], args[1]
	if _, ok := cfg.Registries[registry]; !ok {
		return errs.ConfigErrorf("registry %q is not defined", registry).WithContext("registry", registry)
	}
	switch field {
	case "token", "password", "secretAccessKey":
	default:
		return errs.ValidationErrorf("unsupported secret field %q (want token, password or secretAccessKey)", field)
	}

	km, err := keyring()
	if err != nil {
		return err
	}
	value, err := readSecret(fmt.Sprintf("%s %s: ", registry, field))
	if err != nil {
		return err
	}
	if err := km.SetRegistrySecret(registry, field, value); err != nil {
		return err
	}
	fmt.Printf("✓ %s %s stored in keychain\n", registry, field)
	return nil
}

func keyring() (*config.KeyringManager, error) {
	km := config.NewKeyringManager(logger)
	if !km.IsAvailable() {
		return nil, errs.ConfigError("OS keychain is not available on this system")
	}
	return km, nil
}

func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", errs.FileSystemError(err, "read secret")
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errs.FileSystemError(err, "read secret from stdin")
	}
	return strings.TrimSpace(line), nil
}
