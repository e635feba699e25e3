package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gobeaver/beaver-trust/krypto"
	"github.com/gobeaver/beaver-trust/logger"
	"github.com/gobeaver/beaver-trust/signer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.1.0"

// errCheckFailed makes the process exit non-zero after a negative check
// has already been reported on stdout.
var errCheckFailed = errors.New("check failed")

type app struct {
	keyFlag  string
	logLevel string
	output   string

	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:           "trustctl",
		Short:         "Keys, hashes, encrypted tokens and request signatures",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logger.New(logger.Config{Level: a.logLevel, Format: "console", Name: "trustctl"})
			if err != nil {
				return err
			}
			a.log = l
			if a.output != "text" && a.output != "json" {
				return fmt.Errorf("--output must be text or json, got %q", a.output)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.keyFlag, "key", "", "32-byte key, base64 or hex (or set BEAVER_TRUST_SIGNER_SECRET_KEY)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&a.output, "output", "text", "Output format: text, json")

	rootCmd.AddCommand(keygenCmd(a))
	rootCmd.AddCommand(otpCmd(a))
	rootCmd.AddCommand(hashCmd(a))
	rootCmd.AddCommand(verifyHashCmd(a))
	rootCmd.AddCommand(encryptCmd(a))
	rootCmd.AddCommand(decryptCmd(a))
	rootCmd.AddCommand(signCmd(a))
	rootCmd.AddCommand(verifyCmd(a))
	rootCmd.AddCommand(signURLCmd(a))
	rootCmd.AddCommand(verifyURLCmd(a))
	rootCmd.AddCommand(tokenCmd(a))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// key resolves --key, falling back to the signer configuration.
func (a *app) key() ([]byte, error) {
	encoded := a.keyFlag
	if encoded == "" {
		cfg, err := signer.GetConfig()
		if err != nil {
			return nil, fmt.Errorf("--key is required (or set BEAVER_TRUST_SIGNER_SECRET_KEY): %w", err)
		}
		encoded = cfg.SecretKey
	}

	key, err := krypto.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	return key, nil
}

// print writes text as-is, or v as indented JSON with --output json.
func (a *app) print(w io.Writer, text string, v interface{}) error {
	if a.output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// report prints a check outcome and turns a negative one into errCheckFailed.
func (a *app) report(cmd *cobra.Command, ok bool, yes, no string) error {
	word := no
	if ok {
		word = yes
	}
	if err := a.print(cmd.OutOrStdout(), word, map[string]bool{"ok": ok}); err != nil {
		return err
	}
	if !ok {
		return errCheckFailed
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trustctl version %s\n", version)
		},
	}
}
