package ecosystem

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/licscan/licscan/pkg/logger"
)

// GoExtractor parses go.sum for the module dependency set and resolves
// licenses through the GitHub API. Modules hosted outside GitHub (and
// outside the golang.org/x mirror) stay UNKNOWN for later review.
type GoExtractor struct {
	Registry GitHubResolver
}

func (e *GoExtractor) Extract(ctx context.Context, root string, opts Options) (*Extraction, error) {
	deps := parseGoSum(filepath.Join(root, "go.sum"))
	if len(deps) == 0 {
		return nil, fmt.Errorf("no go.sum found or no external dependencies")
	}

	// Module paths with a bare first element (no dot) are stdlib-ish or
	// local; only domain-rooted paths are external deps.
	var external []Package
	for _, d := range deps {
		if strings.Contains(strings.SplitN(d.Name, "/", 2)[0], ".") {
			external = append(external, d)
		}
	}
	if len(external) == 0 {
		return nil, fmt.Errorf("no external dependencies in go.sum")
	}

	workspaceCount := goWorkUseCount(filepath.Join(root, "go.work"))

	logger.Info(fmt.Sprintf("Looking up %d Go module licenses via GitHub", len(external)))
	resolved := 0
	packages := make([]Package, 0, len(external))
	for _, dep := range external {
		lic := UnknownLicense
		if e.Registry != nil {
			if owner, repo, ok := goModuleToGitHub(dep.Name); ok {
				if l, ok := e.Registry.GitHubLicense(ctx, owner, repo); ok {
					lic = l
					resolved++
				}
			}
		}
		dep.License = lic
		packages = append(packages, dep)
	}
	logger.Info(fmt.Sprintf("Resolved %d/%d licenses via GitHub", resolved, len(external)))

	return &Extraction{
		Packages:       packages,
		IsMonorepo:     workspaceCount > 1,
		WorkspaceCount: workspaceCount,
	}, nil
}

// parseGoSum returns one entry per module path. The /go.mod hash lines
// duplicate every module and are skipped.
func parseGoSum(path string) []Package {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	seen := make(map[string]bool)
	var deps []Package
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 3 {
			continue
		}
		modulePath, version := parts[0], parts[1]
		if strings.HasSuffix(version, "/go.mod") {
			continue
		}
		if seen[modulePath] {
			continue
		}
		seen[modulePath] = true
		deps = append(deps, Package{Name: modulePath, Version: strings.TrimPrefix(version, "v")})
	}
	return deps
}

// goModuleToGitHub maps a module path to a GitHub (owner, repo) pair.
// golang.org/x/* modules mirror to github.com/golang/*. Other vanity
// domains have no clean mapping.
func goModuleToGitHub(modulePath string) (string, string, bool) {
	parts := strings.Split(modulePath, "/")
	if strings.HasPrefix(modulePath, "github.com/") && len(parts) >= 3 {
		return parts[1], parts[2], true
	}
	if strings.HasPrefix(modulePath, "golang.org/x/") && len(parts) >= 3 {
		return "golang", parts[2], true
	}
	return "", "", false
}

// goWorkUseCount counts the use directives of a go.work file.
func goWorkUseCount(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	count := 0
	inBlock := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "//"):
		case line == "use (":
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock:
			count++
		case strings.HasPrefix(line, "use "):
			count++
		}
	}
	return count
}
