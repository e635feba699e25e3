package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gobeaver/beaver-trust/krypto"
	"github.com/gobeaver/beaver-trust/logger"
	"github.com/gobeaver/beaver-trust/signer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func keygenCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random 32-byte key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			switch format {
			case "base64":
				key = krypto.GenerateKeyBase64()
			case "hex":
				key = krypto.GenerateKeyHex()
			default:
				return fmt.Errorf("--format must be base64 or hex, got %q", format)
			}
			return a.print(cmd.OutOrStdout(), key, map[string]string{"key": key, "format": format})
		},
	}
	cmd.Flags().StringVar(&format, "format", "base64", "Key encoding: base64, hex")
	return cmd
}

func otpCmd(a *app) *cobra.Command {
	var digits int
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Generate a numeric one-time password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if digits < 1 || digits > 64 {
				return fmt.Errorf("--digits must be between 1 and 64")
			}
			otp := krypto.GenerateOTP(digits)
			return a.print(cmd.OutOrStdout(), otp, map[string]string{"otp": otp})
		},
	}
	cmd.Flags().IntVar(&digits, "digits", 6, "Number of digits")
	return cmd
}

func hashCmd(a *app) *cobra.Command {
	var (
		legacy      bool
		cost        int
		memoryKiB   uint32
		iterations  uint32
		parallelism uint8
	)
	cmd := &cobra.Command{
		Use:   "hash <secret>",
		Short: "Hash a password with argon2id (or bcrypt with --legacy)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				h   krypto.CredentialHash
				err error
			)
			if legacy {
				h, err = krypto.HashLegacy(args[0], cost)
			} else {
				params := krypto.DefaultArgon2Params()
				params.MemoryKiB = memoryKiB
				params.Iterations = iterations
				params.Parallelism = parallelism

				var pool *krypto.HashPool
				pool, err = krypto.NewHashPool(krypto.WithPoolSize(1), krypto.WithArgon2Params(params), krypto.WithLogger(a.log))
				if err != nil {
					return err
				}
				h, err = pool.Hash(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			a.log.Info("hashed secret", zap.Stringer("algorithm", h.Algorithm()))
			return a.print(cmd.OutOrStdout(), h.String(), map[string]string{"hash": h.String(), "algorithm": h.Algorithm().String()})
		},
	}
	defaults := krypto.DefaultArgon2Params()
	cmd.Flags().BoolVar(&legacy, "legacy", false, "Use bcrypt instead of argon2id")
	cmd.Flags().IntVar(&cost, "cost", 12, "bcrypt cost (4-31), with --legacy")
	cmd.Flags().Uint32Var(&memoryKiB, "memory", defaults.MemoryKiB, "argon2 memory in KiB")
	cmd.Flags().Uint32Var(&iterations, "iterations", defaults.Iterations, "argon2 iterations")
	cmd.Flags().Uint8Var(&parallelism, "parallelism", defaults.Parallelism, "argon2 lanes")
	return cmd
}

func verifyHashCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "verify-hash <secret> <hash>",
		Short: "Check a password against a stored argon2 or bcrypt hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := krypto.NewHashPool(krypto.WithPoolSize(1), krypto.WithLogger(a.log))
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			ok, err := pool.Verify(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if h, perr := krypto.FromString(args[1]); perr == nil && ok && h.NeedsRehash(krypto.DefaultArgon2Params()) {
				a.log.Warn("hash should be upgraded on next login", zap.Stringer("algorithm", h.Algorithm()))
			}
			return a.report(cmd, ok, "match", "mismatch")
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up waiting after this long (0 = no limit)")
	return cmd
}

func encryptCmd(a *app) *cobra.Command {
	var keyID string
	cmd := &cobra.Command{
		Use:   "encrypt <plaintext>",
		Short: "Encrypt text into an AES-256-GCM token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.cipher(keyID)
			if err != nil {
				return err
			}
			token, err := c.EncryptString(args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), token, map[string]string{"token": token})
		},
	}
	cmd.Flags().StringVar(&keyID, "key-id", "", "Prefix tokens with this key id for rotation")
	return cmd
}

func decryptCmd(a *app) *cobra.Command {
	var keyID string
	cmd := &cobra.Command{
		Use:   "decrypt <token>",
		Short: "Decrypt a token produced by encrypt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.cipher(keyID)
			if err != nil {
				return err
			}
			plaintext, err := c.DecryptString(args[0])
			if err != nil {
				a.log.Debug("decryption rejected", zap.Error(err))
				return err
			}
			return a.print(cmd.OutOrStdout(), plaintext, map[string]string{"plaintext": plaintext})
		},
	}
	cmd.Flags().StringVar(&keyID, "key-id", "", "Key id the token was sealed under")
	return cmd
}

// cipher returns a plain encryptor, or a one-key keyring when keyID is set.
func (a *app) cipher(keyID string) (krypto.Cipher, error) {
	key, err := a.key()
	if err != nil {
		return nil, err
	}
	if keyID == "" {
		return krypto.NewEncryptor(key)
	}
	ring := krypto.NewKeyring()
	if err := ring.Add(keyID, key); err != nil {
		return nil, err
	}
	return krypto.NewKeyringEncryptor(ring), nil
}

func signCmd(a *app) *cobra.Command {
	var withNonce bool
	cmd := &cobra.Command{
		Use:   "sign <message>",
		Short: "Sign a message; prints the signature JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.key()
			if err != nil {
				return err
			}
			s := signer.New(signer.WithLogger(a.log))

			var sig signer.Signature
			if withNonce {
				sig, err = s.SignWithNonce(args[0], key, signer.NewNonce())
			} else {
				sig, err = s.Sign(args[0], key)
			}
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), sig.Encode(), sig)
		},
	}
	cmd.Flags().BoolVar(&withNonce, "nonce", false, "Bind a random nonce into the signature")
	return cmd
}

func verifyCmd(a *app) *cobra.Command {
	var maxAge int64
	cmd := &cobra.Command{
		Use:   "verify <message> <signature-json>",
		Short: "Verify a signature produced by sign",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.key()
			if err != nil {
				return err
			}
			sig, err := signer.ParseSignature(args[1])
			if err != nil {
				return err
			}
			ok, err := signer.New(signer.WithLogger(a.log)).Verify(sig, args[0], key, maxAge)
			if err != nil {
				return err
			}
			return a.report(cmd, ok, "valid", "invalid")
		},
	}
	cmd.Flags().Int64Var(&maxAge, "max-age", 5, "Replay window in minutes")
	return cmd
}

func signURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sign-url <path> [key=value...]",
		Short: "Build a signed query string for path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.key()
			if err != nil {
				return err
			}
			params := make([]signer.Param, 0, len(args)-1)
			for _, kv := range args[1:] {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("parameter %q is not key=value", kv)
				}
				params = append(params, signer.Param{Key: k, Value: v})
			}

			query, err := signer.New(signer.WithLogger(a.log)).CreateSignedURL(args[0], params, key)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), args[0]+"?"+query, map[string]string{"path": args[0], "query": query})
		},
	}
}

func verifyURLCmd(a *app) *cobra.Command {
	var maxAge int64
	cmd := &cobra.Command{
		Use:   "verify-url <path> <query>",
		Short: "Verify a query string produced by sign-url",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.key()
			if err != nil {
				return err
			}
			ok, err := signer.New(signer.WithLogger(a.log)).VerifySignedURL(args[0], strings.TrimPrefix(args[1], "?"), key, maxAge)
			if err != nil {
				return err
			}
			a.log.Debug("signed url checked", logger.String("path", args[0]), zap.Bool("valid", ok))
			return a.report(cmd, ok, "valid", "invalid")
		},
	}
	cmd.Flags().Int64Var(&maxAge, "max-age", 5, "Replay window in minutes")
	return cmd
}

func tokenCmd(a *app) *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue an HS256 access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.key()
			if err != nil {
				return err
			}
			issuer, err := krypto.NewTokenIssuer(key, ttl)
			if err != nil {
				return err
			}
			token, err := issuer.IssueAccessToken(args[0], email)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), token, map[string]string{"access_token": token, "token_type": "Bearer"})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", krypto.DefaultAccessTokenTTL, "Token lifetime")
	return cmd
}
