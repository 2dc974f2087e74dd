// Package blame attributes flagged dependencies to the commit that
// introduced them, walking the dependency chain back to a direct
// dependency and running a git pickaxe over manifest history.
package blame

import (
	"context"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/licscan/licscan/internal/ecosystem"
	"github.com/licscan/licscan/internal/exec"
	"github.com/licscan/licscan/internal/license"
	"github.com/licscan/licscan/pkg/logger"
)

// Tracer enriches classified entries with provenance. It is best-effort
// throughout: any failure on one entry leaves that entry without an
// introduction record and moves on.
type Tracer struct {
	Root string
	PM   string

	cmdTimeout time.Duration
}

func NewTracer(root, pm string) *Tracer {
	return &Tracer{Root: root, PM: pm, cmdTimeout: 60 * time.Second}
}

// Trace fills in IntroducedBy on each entry. Shallow clones are deepened
// first so the pickaxe can reach the introducing commit.
func (t *Tracer) Trace(ctx context.Context, entries []*license.Entry) {
	if len(entries) == 0 {
		return
	}

	if isShallowClone(t.Root) {
		logger.Debug("Unshallowing clone for blame history")
		if res, err := exec.Run(ctx, t.Root, 2*time.Minute, "git", "fetch", "--unshallow"); err != nil || !res.OK() {
			logger.Debug("failed to unshallow, pickaxe may miss old commits")
		}
	}

	pathspecs := manifestPathspecs(t.PM)
	if len(pathspecs) == 0 {
		return
	}

	for _, entry := range entries {
		logger.Debug("Tracing blame for " + entry.Name)

		var direct string
		var chain []string
		if isDirectDependency(t.Root, t.PM, entry.Name) {
			direct, chain = entry.Name, []string{entry.Name}
		} else {
			direct, chain = t.traceChain(ctx, entry.Name)
		}

		commit := t.pickaxe(ctx, direct, pathspecs)
		if commit == nil {
			continue
		}
		entry.IntroducedBy = &license.Introduction{
			DirectDependency: direct,
			DependencyChain:  chain,
			Commit:           commit.hash,
			Author:           commit.author,
			Date:             commit.date,
			Message:          commit.message,
		}
	}
}

func isShallowClone(root string) bool {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return false
	}
	hashes, err := repo.Storer.Shallow()
	return err == nil && len(hashes) > 0
}

// manifestPathspecs returns the git pathspecs whose history carries
// dependency additions for a package manager. Ecosystems without a
// blame-traceable manifest return nil and skip tracing.
func manifestPathspecs(pm string) []string {
	switch pm {
	case ecosystem.PMPnpm, ecosystem.PMNpm, ecosystem.PMYarn:
		return []string{":(glob)**/package.json"}
	case ecosystem.PMCargo:
		return []string{":(glob)**/Cargo.toml"}
	case ecosystem.PMPoetry, ecosystem.PMUv:
		return []string{"pyproject.toml"}
	case ecosystem.PMPipenv:
		return []string{"Pipfile"}
	case ecosystem.PMPip:
		return []string{"requirements.txt"}
	}
	return nil
}

type pickaxeCommit struct {
	hash    string
	author  string
	date    string
	message string
}

// pickaxe finds the oldest commit whose diff changed the number of
// occurrences of the dependency name in the manifest pathspecs. git log
// emits newest first, so the last line is the introduction.
func (t *Tracer) pickaxe(ctx context.Context, depName string, pathspecs []string) *pickaxeCommit {
	args := append([]string{"log", "-S", depName, "--format=%H|%an|%ai|%s", "--"}, pathspecs...)
	res, err := exec.Run(ctx, t.Root, 15*time.Second, "git", args...)
	if err != nil || !res.OK() {
		return nil
	}
	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	last := lines[len(lines)-1]
	parts := strings.SplitN(last, "|", 4)
	if len(parts) < 4 {
		return nil
	}

	hash := parts[0]
	if len(hash) > 7 {
		hash = hash[:7]
	}
	date := parts[2]
	if fields := strings.Fields(date); len(fields) > 0 {
		date = fields[0]
	}
	return &pickaxeCommit{hash: hash, author: parts[1], date: date, message: parts[3]}
}

// traceChain resolves the flagged package back to the direct dependency
// that pulled it in, using the package manager's own dependency querying.
// When nothing works the package blames itself with a single-element
// chain.
func (t *Tracer) traceChain(ctx context.Context, pkgName string) (string, []string) {
	switch t.PM {
	case ecosystem.PMPnpm:
		if direct, chain, ok := t.pnpmWhy(ctx, pkgName); ok {
			return direct, chain
		}
		if direct, ok := pnpmLockParent(t.Root, pkgName); ok {
			return direct, []string{direct, pkgName}
		}
	case ecosystem.PMNpm:
		if direct, chain, ok := t.npmLs(ctx, pkgName); ok {
			return direct, chain
		}
		if direct, ok := nestedNodeModulesParent(t.Root, pkgName); ok {
			return direct, []string{direct, pkgName}
		}
	case ecosystem.PMYarn:
		if direct, chain, ok := t.yarnWhy(ctx, pkgName); ok {
			return direct, chain
		}
		if direct, ok := nestedNodeModulesParent(t.Root, pkgName); ok {
			return direct, []string{direct, pkgName}
		}
	case ecosystem.PMCargo:
		if direct, chain, ok := t.cargoTreeInvert(ctx, pkgName); ok {
			return direct, chain
		}
	}
	return pkgName, []string{pkgName}
}

func (t *Tracer) run(ctx context.Context, name string, args ...string) (exec.Result, error) {
	return exec.Run(ctx, t.Root, t.cmdTimeout, name, args...)
}
