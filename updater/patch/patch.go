// Package patch rewrites version-bearing lines in target
// files. Matching is structural (anchored line patterns),
// never a full-file parse, so the surrounding formatting
// survives untouched.
package patch

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
)

const (
	// AnnotationKey is the manifest annotation that
	// records a deployed runtime's version.
	AnnotationKey = "opendatahub.io/runtime-version"

	// BuildArgKey is the Dockerfile build argument that
	// pins the vLLM version at image-build time.
	BuildArgKey = "VLLM_VERSION"
)

// Patcher rewrites the version value in file content.
type Patcher interface {
	// Apply returns content with the version value
	// replaced. When no target line matches, content is
	// returned unchanged.
	Apply(content string, version string) string

	// Describe names the key being rewritten, for log
	// and summary lines.
	Describe() string
}

// linePatcher is a structural single-line patcher. The
// pattern captures prefix, optional quotes, value, and
// trailing whitespace so the rewrite can preserve them.
type linePatcher struct {
	re  *regexp.Regexp
	key string
	// normalizeQuotes forces double quotes on output
	// instead of preserving the original quoting.
	normalizeQuotes bool
}

// Annotation returns the patcher for the
// opendatahub.io/runtime-version manifest annotation.
// Indentation, quote style, and trailing whitespace of
// the original line are preserved exactly.
func Annotation() Patcher {
	return &linePatcher{
		re: regexp.MustCompile(
			`(?m)^(\s*` +
				regexp.QuoteMeta(AnnotationKey) +
				`\s*:\s*)(["']?)([^"'\r\n]+?)(["']?)([ \t]*\r?)$`,
		),
		key: AnnotationKey,
	}
}

// BuildArg returns the patcher for the VLLM_VERSION
// Dockerfile build argument. The rewritten value is
// always double-quoted, matching the convention in the
// downstream Dockerfiles.
func BuildArg() Patcher {
	return &linePatcher{
		re: regexp.MustCompile(
			`(?m)^(\s*ARG\s+` +
				regexp.QuoteMeta(BuildArgKey) +
				`\s*=\s*)(["']?)([^"'\r\n]+?)(["']?)([ \t]*\r?)$`,
		),
		key:             BuildArgKey,
		normalizeQuotes: true,
	}
}

// Apply rewrites every matching line's value span.
func (p *linePatcher) Apply(
	content string,
	version string,
) string {
	return p.re.ReplaceAllStringFunc(
		content,
		func(line string) string {
			groups := p.re.FindStringSubmatch(line)

			prefix := groups[1]
			openQuote := groups[2]
			closeQuote := groups[4]
			trailing := groups[5]

			// A line with mismatched quoting is not a
			// well-formed value; leave it alone.
			if openQuote != closeQuote {
				return line
			}

			if p.normalizeQuotes {
				return prefix + `"` + version + `"` +
					trailing
			}

			return prefix + openQuote + version +
				closeQuote + trailing
		},
	)
}

// Describe returns the key this patcher rewrites.
func (p *linePatcher) Describe() string {
	return p.key
}

// Outcome reports what ApplyToFile did.
type Outcome int

const (
	// Unchanged means the file matched no target line
	// or already carried the version.
	Unchanged Outcome = iota

	// Updated means the file content was rewritten on
	// disk.
	Updated

	// WouldUpdate means the file would change, but the
	// dry run suppressed the write.
	WouldUpdate

	// Missing means the file does not exist and was
	// skipped.
	Missing
)

// ApplyToFile patches the file at path to version. A
// missing file is a skip with a warning, not an error.
// The file is rewritten only when the patched content
// differs byte-for-byte from the original, so a second
// application with the same version is a no-op and never
// touches the filesystem.
func ApplyToFile(
	p Patcher,
	path string,
	version string,
	dryRun bool,
) (Outcome, error) {
	const errCtx = "patching file"

	data, err := os.ReadFile(path) //nolint:gosec // paths from the mapping table
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn(
				"target file not found, skipping",
				"path", path,
			)

			return Missing, nil
		}

		return Unchanged, fmt.Errorf(
			"%s: read %s: %w", errCtx, path, err,
		)
	}

	updated := p.Apply(string(data), version)
	if updated == string(data) {
		slog.Info(
			"no changes needed",
			"path", path,
			"key", p.Describe(),
		)

		return Unchanged, nil
	}

	if dryRun {
		slog.Info(
			"dry run: would update",
			"path", path,
			"key", p.Describe(),
			"version", version,
		)

		return WouldUpdate, nil
	}

	//nolint:gosec // permissions match the checkout
	if err := os.WriteFile(
		path, []byte(updated), 0o644,
	); err != nil {
		return Unchanged, fmt.Errorf(
			"%s: write %s: %w", errCtx, path, err,
		)
	}

	slog.Info(
		"updated",
		"path", path,
		"key", p.Describe(),
		"version", version,
	)

	return Updated, nil
}
