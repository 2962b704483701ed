package git

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/byte4ever/runtime_updater/updater/exec"
)

// Repo is a local working copy of one downstream
// repository. Create with Clone, and call Clean when
// done.
type Repo struct {
	// Dir is the filesystem location of the clone.
	Dir string
	// RemoteName is the name of the upstream remote.
	RemoteName string
}

// RemoteURL returns the anonymous HTTPS remote URL for
// repoPath ("owner/repo") on host.
func RemoteURL(host string, repoPath string) string {
	return fmt.Sprintf(
		"https://%s/%s.git", host, repoPath,
	)
}

// AuthRemoteURL returns the HTTPS remote URL with
// token-based credentials embedded, used when pushing
// branches.
func AuthRemoteURL(
	host string,
	repoPath string,
	token string,
) string {
	return fmt.Sprintf(
		"https://x-access-token:%s@%s/%s.git",
		token, host, repoPath,
	)
}

// Clone clones url into dir and checks out branch. A
// clone failure is local to the repository being
// processed; callers must not let it abort sibling work.
func Clone(
	url string,
	dir string,
	branch string,
) (*Repo, error) {
	const errCtx = "cloning repository"

	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf(
			"%s: remove dir: %w", errCtx, err,
		)
	}

	remoteName := "origin"

	if _, err := exec.Ex(
		"", "git",
		"clone",
		"--origin", remoteName,
		url, dir,
	); err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	if _, err := exec.Ex(
		dir, "git", "checkout", branch,
	); err != nil {
		return nil, fmt.Errorf(
			"%s: checkout %s: %w",
			errCtx, branch, err,
		)
	}

	return &Repo{
		Dir:        dir,
		RemoteName: remoteName,
	}, nil
}

// Clean removes the local clone directory.
func (r *Repo) Clean() error {
	const errCtx = "cleaning repository"

	if err := os.RemoveAll(r.Dir); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// IsClean reports whether the working tree has no
// uncommitted changes (porcelain status is empty).
func (r *Repo) IsClean() (bool, error) {
	const errCtx = "checking repository status"

	out, err := exec.Ex(
		r.Dir, "git", "status", "--porcelain",
	)
	if err != nil {
		return false, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return strings.TrimSpace(out) == "", nil
}

// ChangedFiles returns the paths reported by porcelain
// status (modified and untracked).
func (r *Repo) ChangedFiles() ([]string, error) {
	const errCtx = "listing changed files"

	out, err := exec.Ex(
		r.Dir, "git", "status", "--porcelain",
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	var files []string

	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()

		// Porcelain lines are "XY path".
		if len(line) > 3 {
			files = append(files, line[3:])
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf(
			"%s: scan output: %w", errCtx, err,
		)
	}

	return files, nil
}

// CheckoutNewBranch creates branch at the current HEAD
// and switches to it.
func (r *Repo) CheckoutNewBranch(branch string) error {
	const errCtx = "creating branch"

	if _, err := exec.Ex(
		r.Dir, "git", "checkout", "-b", branch,
	); err != nil {
		return fmt.Errorf(
			"%s: %s: %w", errCtx, branch, err,
		)
	}

	return nil
}

// AddAll stages every change in the working tree.
func (r *Repo) AddAll() error {
	const errCtx = "staging changes"

	if _, err := exec.Ex(
		r.Dir, "git", "add", ".",
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Commit records the staged changes with message.
func (r *Repo) Commit(message string) error {
	const errCtx = "committing changes"

	if _, err := exec.Ex(
		r.Dir, "git", "commit", "-m", message,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// SetRemoteURL rewrites the upstream remote URL. Used to
// embed push credentials just before pushing.
func (r *Repo) SetRemoteURL(url string) error {
	const errCtx = "setting remote url"

	if _, err := exec.Ex(
		r.Dir, "git",
		"remote", "set-url", r.RemoteName, url,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// Push pushes branch to the upstream remote.
func (r *Repo) Push(branch string) error {
	const errCtx = "pushing branch"

	if _, err := exec.Ex(
		r.Dir, "git",
		"push", r.RemoteName, branch,
	); err != nil {
		return fmt.Errorf(
			"%s: %s: %w", errCtx, branch, err,
		)
	}

	return nil
}
