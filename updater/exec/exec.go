// Package exec provides subprocess execution helpers.
// Arguments are always passed as a vector, never as
// interpolated shell text.
package exec

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
)

// credentialRe matches userinfo credentials embedded in
// URL-shaped arguments (push remotes carry an access
// token) so they never reach log output.
var credentialRe = regexp.MustCompile(`//[^/@\s]+@`)

// Redact returns a copy of args with embedded URL
// credentials masked.
func Redact(args []string) []string {
	out := make([]string, len(args))

	for i, a := range args {
		out[i] = credentialRe.ReplaceAllString(
			a, "//***@",
		)
	}

	return out
}

// Ex executes the named command in the given directory and
// returns combined stdout+stderr output. Pass empty dir to
// use the current working directory. Credential-bearing
// arguments are redacted from log lines and errors.
func Ex(
	dir string,
	name string,
	arg ...string,
) (string, error) {
	const errCtx = "executing command"

	logged := strings.Join(Redact(arg), " ")

	slog.Info(
		"executing",
		"cmd", name,
		"args", logged,
	)

	cmd := exec.CommandContext(context.Background(), name, arg...)
	if dir != "" {
		cmd.Dir = dir
	}

	by, err := cmd.CombinedOutput()

	slog.Info("output", "result", string(by))

	if err != nil {
		return string(by), fmt.Errorf(
			"%s: %s %s: %w",
			errCtx, name, logged, err,
		)
	}

	return string(by), nil
}
