package scan

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/licscan/licscan/internal/ecosystem"
	"github.com/licscan/licscan/internal/exec"
	"github.com/licscan/licscan/pkg/logger"
)

// installCommands run with --ignore-scripts so postinstall hooks from
// untrusted dependencies never execute.
var installCommands = map[string][]string{
	ecosystem.PMPnpm: {"pnpm", "install", "--frozen-lockfile", "--ignore-scripts"},
	ecosystem.PMNpm:  {"npm", "ci", "--ignore-scripts"},
	ecosystem.PMYarn: {"yarn", "install", "--frozen-lockfile", "--ignore-scripts"},
}

// CloneAndInstall clones a GitHub repo shallowly into a temp dir,
// detects its package manager, and for the JS family installs
// dependencies. Callers own the returned directory and must remove it.
func CloneAndInstall(ctx context.Context, repo, ref string) (dir, pm string, err error) {
	tmpdir, err := os.MkdirTemp("", "licscan-")
	if err != nil {
		return "", "", fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(tmpdir)
		}
	}()

	slug := normalizeRepoSlug(repo)

	args := []string{"repo", "clone", slug, tmpdir, "--", "--depth", "1"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}

	logger.Info("Cloning " + slug)
	res, _ := exec.Run(ctx, "", 2*time.Minute, "gh", args...)
	if !res.OK() {
		return "", "", fmt.Errorf("clone failed: %s", res.Message())
	}

	pm = ecosystem.Detect(tmpdir)
	if pm == "" {
		return "", "", fmt.Errorf("no package manager detected in cloned repo")
	}

	install, needsInstall := installCommands[pm]
	if !needsInstall {
		// Lockfile and registry based ecosystems scan without installing.
		logger.Info(fmt.Sprintf("Detected %s project (no install needed)", pm))
		return tmpdir, pm, nil
	}

	logger.Info("Installing dependencies with " + pm)
	res, _ = exec.Run(ctx, tmpdir, 10*time.Minute, install[0], install[1:]...)
	if !res.OK() {
		return "", "", fmt.Errorf("install failed: %s", res.Message())
	}
	return tmpdir, pm, nil
}

// normalizeRepoSlug reduces GitHub URL forms to org/repo; anything else
// passes through for gh to interpret.
func normalizeRepoSlug(repo string) string {
	raw := repo
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if parsed, err := url.Parse(raw); err == nil && parsed.Hostname() == "github.com" {
		repo = strings.Trim(parsed.Path, "/")
	}
	return strings.TrimRight(repo, "/")
}
