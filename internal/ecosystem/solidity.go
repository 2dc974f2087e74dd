package ecosystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitconfig "github.com/go-git/go-git/v5/config"

	"github.com/licscan/licscan/internal/registry"
	"github.com/licscan/licscan/pkg/logger"
)

// SolidityExtractor covers Foundry and Hardhat projects. Dependencies
// arrive from two sources: git submodules (the Foundry convention for
// lib/ deps, resolved via GitHub) and package.json deps (left UNKNOWN
// here so second-pass classification resolves them against npm).
type SolidityExtractor struct {
	Registry GitHubResolver
}

func (e *SolidityExtractor) Extract(ctx context.Context, root string, opts Options) (*Extraction, error) {
	var packages []Package
	seen := make(map[string]bool)

	// Monorepo subprojects keep .gitmodules at the repo root.
	submodules := parseGitmodules(filepath.Join(root, ".gitmodules"))
	if len(submodules) == 0 {
		if parent := filepath.Dir(root); parent != root {
			submodules = parseGitmodules(filepath.Join(parent, ".gitmodules"))
		}
	}

	var githubSubs []*gitconfig.Submodule
	for _, sub := range submodules {
		if _, _, ok := registry.ParseGitHubURL(sub.URL); ok {
			githubSubs = append(githubSubs, sub)
		}
	}
	if len(githubSubs) > 0 {
		logger.Info(fmt.Sprintf("Looking up %d Foundry submodule licenses via GitHub", len(githubSubs)))
		resolved := 0
		for _, sub := range githubSubs {
			lic := UnknownLicense
			owner, repo, _ := registry.ParseGitHubURL(sub.URL)
			if e.Registry != nil {
				if l, ok := e.Registry.GitHubLicense(ctx, owner, repo); ok {
					lic = l
					resolved++
				}
			}
			name := sub.Name
			if name == "" {
				name = sub.Path
			}
			if name == "" {
				name = sub.URL
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			packages = append(packages, Package{Name: name, Version: "submodule", License: lic})
		}
		logger.Info(fmt.Sprintf("Resolved %d/%d submodule licenses via GitHub", resolved, len(githubSubs)))
	}

	packages = append(packages, solidityNpmDeps(filepath.Join(root, "package.json"), seen)...)

	if len(packages) == 0 {
		return nil, fmt.Errorf("no dependencies found in Solidity/Foundry project")
	}
	return &Extraction{Packages: packages}, nil
}

func parseGitmodules(path string) []*gitconfig.Submodule {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	modules := gitconfig.NewModules()
	if err := modules.Unmarshal(data); err != nil {
		return nil
	}

	names := make([]string, 0, len(modules.Submodules))
	for name := range modules.Submodules {
		names = append(names, name)
	}
	sort.Strings(names)

	subs := make([]*gitconfig.Submodule, 0, len(names))
	for _, name := range names {
		subs = append(subs, modules.Submodules[name])
	}
	return subs
}

// solidityNpmDeps lists package.json deps with UNKNOWN licenses; the
// classifier's npm second pass fills them in.
func solidityNpmDeps(pkgJSONPath string, seen map[string]bool) []Package {
	data, err := os.ReadFile(pkgJSONPath)
	if err != nil {
		return nil
	}
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil
	}

	var packages []Package
	collect := func(deps map[string]string, isDev bool) {
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			packages = append(packages, Package{
				Name:    name,
				Version: strings.TrimLeft(deps[name], "^~>="),
				License: UnknownLicense,
				IsDev:   isDev,
			})
		}
	}
	collect(pkg.Dependencies, false)
	collect(pkg.DevDependencies, true)
	return packages
}
