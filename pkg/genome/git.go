package genome

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/prime-radiant-inc/sprout/pkg/logger"
)

// runGit shells out to the git CLI collaborator in dir, returning combined
// stdout. Non-goal: reimplementing git internals — this is a thin wrapper.
func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("git %v: %w: %s", args, err, stderr.String())
	}
	return out.String(), nil
}

func gitInit(dir string) error {
	if _, err := runGit(dir, "rev-parse", "--is-inside-work-tree"); err == nil {
		return nil
	}
	if _, err := runGit(dir, "init"); err != nil {
		return err
	}
	if _, err := runGit(dir, "config", "user.name", "sprout"); err != nil {
		return err
	}
	if _, err := runGit(dir, "config", "user.email", "sprout@localhost"); err != nil {
		return err
	}
	return nil
}

// commitAll stages everything and commits with message. A failure here is
// fatal for the mutation that triggered it: in-memory state is left
// diverged from disk, and callers must surface the error rather than
// silently continuing.
func commitAll(dir, message string) error {
	if _, err := runGit(dir, "add", "-A"); err != nil {
		return err
	}
	out, err := runGit(dir, "diff", "--cached", "--quiet")
	if err == nil {
		logger.Get().Debug("genome: commit skipped, nothing staged", "message", message)
		return nil
	}
	_ = out
	if _, err := runGit(dir, "commit", "-m", message); err != nil {
		return err
	}
	return nil
}

func lastCommitHash(dir string) (string, error) {
	out, err := runGit(dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return trimNewline(out), nil
}

func revertHead(dir string) error {
	_, err := runGit(dir, "revert", "--no-edit", "HEAD")
	return err
}

func revertCommit(dir, hash string) error {
	_, err := runGit(dir, "revert", "--no-edit", hash)
	return err
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
