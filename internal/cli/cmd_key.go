package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jiajunhou/daybook/internal/app"
	"github.com/spf13/cobra"
)

// maxKeyInput caps how much is read from stdin or --in for key commands.
const maxKeyInput = 16 << 20

func newKeyCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Encrypt and decrypt with the local key",
		Example: "  echo -n 'hello' | daybook key encrypt\n" +
			"  daybook key decrypt <token>\n" +
			"  daybook key status",
	}
	cmd.AddCommand(
		newKeyEncryptCommand(deps),
		newKeyDecryptCommand(deps),
		newKeyStatusCommand(deps),
	)
	return cmd
}

func newKeyEncryptCommand(deps commandDeps) *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Seal stdin (or --in) into a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("key encrypt does not accept positional arguments")
			}
			plaintext, err := readKeyInput(cmd, inputPath)
			if err != nil {
				return mapCommandError(err)
			}
			return withRuntime(cmd.Context(), deps, func(_ context.Context, rt *app.Runtime) error {
				token, err := rt.Keys.Encrypt(plaintext)
				if err != nil {
					return err
				}
				if deps.asJSON() {
					return printJSON(deps.out, map[string]string{"token": token})
				}
				_, err = fmt.Fprintln(deps.out, token)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&inputPath, "in", "", "Read plaintext from this file instead of stdin")
	return cmd
}

func newKeyDecryptCommand(deps commandDeps) *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "decrypt [token]",
		Short: "Open a token from the argument, stdin or --in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("key decrypt accepts at most one token")
			}
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				raw, err := readKeyInput(cmd, inputPath)
				if err != nil {
					return mapCommandError(err)
				}
				token = strings.TrimSpace(string(raw))
			}
			if token == "" {
				return usageErrorf("key decrypt requires a token")
			}

			return withRuntime(cmd.Context(), deps, func(_ context.Context, rt *app.Runtime) error {
				plaintext, err := rt.Keys.Decrypt(token)
				if err != nil {
					return err
				}
				_, err = deps.out.Write(plaintext)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&inputPath, "in", "", "Read the token from this file instead of stdin")
	return cmd
}

func newKeyStatusCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the key lives and its fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("key status does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(_ context.Context, rt *app.Runtime) error {
				status := rt.Keys.Status()
				if deps.asJSON() {
					return printJSON(deps.out, status)
				}
				if deps.quiet() {
					return nil
				}
				_, err := fmt.Fprintf(deps.out, "key=%s fingerprint=%s\n", status.Path, status.Fingerprint)
				return err
			})
		},
	}
}

func readKeyInput(cmd *cobra.Command, path string) ([]byte, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxKeyInput+1))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(data) > maxKeyInput {
		return nil, usageErrorf("input exceeds %d bytes", maxKeyInput)
	}
	return data, nil
}
