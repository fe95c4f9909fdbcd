package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"herbtrace/internal/app"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassphrase prompts on the terminal without echo. When stdin is not a
// terminal the first line of stdin is used.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage sealed ledger snapshots",
}

var archiveSetupKeysCmd = &cobra.Command{
	Use:   "setup-keys",
	Short: "Generate the snapshot sealing key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		if term.IsTerminal(int(os.Stdin.Fd())) {
			confirm, err := readPassphrase("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if confirm != pass {
				return fmt.Errorf("passphrases do not match")
			}
		}

		if err := app.SetupKeys(cfg, pass); err != nil {
			return fmt.Errorf("setting up keys: %w", err)
		}
		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

var archiveRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Download and unseal the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}

		if err := app.RestoreSnapshot(cfg, pass, out); err != nil {
			return fmt.Errorf("restoring snapshot: %w", err)
		}
		fmt.Printf("Snapshot restored to %s\n", out)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAppWithLog(os.Stderr, "serve")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(cmd.Context())
	},
}

func init() {
	archiveRestoreCmd.Flags().StringP("out", "o", "", "Path of the restored database file")
	_ = archiveRestoreCmd.MarkFlagRequired("out")

	archiveCmd.AddCommand(archiveSetupKeysCmd)
	archiveCmd.AddCommand(archiveRestoreCmd)

	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(serveCmd)
}
