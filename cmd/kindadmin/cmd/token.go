package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect API tokens",
}

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect <jwt|->",
	Short: "Decode a token and report whether the admin would accept it",
	Long: `Decodes the claims of a token returned by the login endpoint and applies
the same structure and expiry checks the admin uses when restoring a session.
The signature is not verified. Pass "-" to read the token from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := args[0]
		if raw == "-" {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("read token: %w", err)
			}
			raw = line
		}
		return inspectToken(cmd.OutOrStdout(), raw, time.Now())
	},
}

// inspectToken writes the validation result and the decoded claims of raw.
// It returns an error when the token would be rejected.
func inspectToken(w io.Writer, raw string, now time.Time) error {
	raw = strings.TrimSpace(raw)
	result := sdk.ValidateTokenAt(raw, now)

	fmt.Fprintf(w, "structure: %s\n", okString(result.HasValidStructure))
	if exp, ok := sdk.TokenExpiration(raw); ok {
		fmt.Fprintf(w, "expires:   %s\n", exp.UTC().Format(time.RFC3339))
	}
	if left, ok := sdk.TimeUntilExpiration(raw, now); ok {
		fmt.Fprintf(w, "remaining: %s\n", left.Round(time.Second))
	}

	if result.Claims != nil {
		out, err := yaml.Marshal(map[string]any(result.Claims))
		if err != nil {
			return fmt.Errorf("encode claims: %w", err)
		}
		fmt.Fprintf(w, "claims:\n%s", indent(string(out), "  "))
	}

	if !result.Valid {
		return fmt.Errorf("token rejected: %s", result.Error)
	}
	fmt.Fprintln(w, "valid:     yes")
	return nil
}

func okString(ok bool) string {
	if ok {
		return "ok"
	}
	return "malformed"
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenInspectCmd)
}
