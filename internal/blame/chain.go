package blame

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// tree-drawing characters pnpm and cargo prefix onto output lines
	treePrefixRe = regexp.MustCompile(`^[\s\x{2502}\x{251c}\x{2514}\x{2500}\x{252c}\x{2524}]+`)
	pnpmEntryRe  = regexp.MustCompile(`^(@[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+|[a-zA-Z][a-zA-Z0-9_.-]*)[\s@](\d[\d.]*)`)
	yarnWhyRe    = regexp.MustCompile(`"([^"]+)"\s+depends on it`)
	cargoTreeRe  = regexp.MustCompile(`^[\x{2502}\x{251c}\x{2514}\x{2500} ]*([a-zA-Z][a-zA-Z0-9_-]*)`)
	pnpmHeaderRe = regexp.MustCompile(`^[/'"]?(@[a-zA-Z0-9._-]+/[a-zA-Z0-9._-]+|[a-zA-Z][a-zA-Z0-9._-]*)@`)
)

// pnpmWhy parses `pnpm why` tree output. The first entry is the project
// itself; the one after it is the direct dependency. Workspace packages
// need the recursive flag, tried second.
func (t *Tracer) pnpmWhy(ctx context.Context, pkgName string) (string, []string, bool) {
	res, err := t.run(ctx, "pnpm", "why", pkgName)
	if err != nil {
		return "", nil, false
	}
	output := strings.TrimSpace(res.Stdout)
	if output == "" {
		res, err = t.run(ctx, "pnpm", "why", "-r", pkgName)
		if err != nil {
			return "", nil, false
		}
		output = strings.TrimSpace(res.Stdout)
	}
	if !res.OK() || output == "" {
		return "", nil, false
	}

	var chainNames []string
	for _, line := range strings.Split(output, "\n") {
		cleaned := strings.TrimSpace(treePrefixRe.ReplaceAllString(line, ""))
		if cleaned == "" || strings.HasPrefix(cleaned, "Legend:") || strings.HasSuffix(cleaned, ":") {
			continue
		}
		if m := pnpmEntryRe.FindStringSubmatch(cleaned); m != nil {
			chainNames = append(chainNames, m[1])
		}
	}
	if len(chainNames) == 0 {
		return "", nil, false
	}

	// chainNames[0] is the project or workspace name.
	var deps []string
	for _, n := range chainNames[1:] {
		if n != pkgName {
			deps = append(deps, n)
		}
	}
	if len(deps) > 0 {
		return deps[0], append(deps, pkgName), true
	}
	for _, n := range chainNames {
		if n == pkgName {
			return pkgName, []string{pkgName}, true
		}
	}
	return "", nil, false
}

// npmLs walks `npm ls <pkg> --json` depth-first for the first path from a
// direct dependency down to the target.
func (t *Tracer) npmLs(ctx context.Context, pkgName string) (string, []string, bool) {
	res, err := t.run(ctx, "npm", "ls", pkgName, "--json")
	if err != nil || strings.TrimSpace(res.Stdout) == "" {
		return "", nil, false
	}

	var root npmLsNode
	if json.Unmarshal([]byte(res.Stdout), &root) != nil {
		return "", nil, false
	}
	chain := findNpmPath(&root, pkgName, nil)
	if len(chain) == 0 {
		return "", nil, false
	}
	return chain[0], chain, true
}

type npmLsNode struct {
	Dependencies map[string]*npmLsNode `json:"dependencies"`
}

func findNpmPath(node *npmLsNode, target string, path []string) []string {
	for name, child := range node.Dependencies {
		current := append(append([]string{}, path...), name)
		if name == target {
			return current
		}
		if child != nil {
			if found := findNpmPath(child, target, current); found != nil {
				return found
			}
		}
	}
	return nil
}

// yarnWhy scrapes the `"x" depends on it` lines of yarn why output.
func (t *Tracer) yarnWhy(ctx context.Context, pkgName string) (string, []string, bool) {
	res, err := t.run(ctx, "yarn", "why", pkgName)
	if err != nil || !res.OK() {
		return "", nil, false
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		if m := yarnWhyRe.FindStringSubmatch(line); m != nil {
			return m[1], []string{m[1], pkgName}, true
		}
	}
	return "", nil, false
}

// cargoTreeInvert reads the reverse dependency tree. The first line is
// the target itself and the deepest entry is a workspace member, so the
// chain is reported root-first.
func (t *Tracer) cargoTreeInvert(ctx context.Context, pkgName string) (string, []string, bool) {
	res, err := t.run(ctx, "cargo", "tree", "--invert", "-p", pkgName, "--depth", "10")
	if err != nil || !res.OK() || strings.TrimSpace(res.Stdout) == "" {
		return "", nil, false
	}

	var chain []string
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if m := cargoTreeRe.FindStringSubmatch(line); m != nil {
			chain = append(chain, m[1])
		}
	}
	if len(chain) <= 1 {
		return "", nil, false
	}
	reversed := make([]string, len(chain))
	for i, n := range chain {
		reversed[len(chain)-1-i] = n
	}
	return reversed[0], reversed, true
}

// pnpmLockParent scans pnpm-lock.yaml for a package whose dependency
// block references the target. Header lines vary across lockfile
// versions ('/pkg@version:', 'pkg@version':), so matching is loose.
func pnpmLockParent(root, pkgName string) (string, bool) {
	f, err := os.Open(filepath.Join(root, "pnpm-lock.yaml"))
	if err != nil {
		return "", false
	}
	defer f.Close()

	depLineRe := regexp.MustCompile(`^\s+` + regexp.QuoteMeta(pkgName) + `:\s`)

	var currentPkg string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(line, "    ") && (strings.Contains(stripped, "@") || strings.HasSuffix(stripped, ":")) {
			if m := pnpmHeaderRe.FindStringSubmatch(strings.TrimLeft(stripped, "/")); m != nil {
				currentPkg = m[1]
			}
		}
		if currentPkg != "" && currentPkg != pkgName && depLineRe.MatchString(line) {
			return currentPkg, true
		}
	}
	return "", false
}

// nestedNodeModulesParent checks each direct dependency for a nested
// node_modules copy of the target, which marks it as the parent.
func nestedNodeModulesParent(root, pkgName string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return "", false
	}
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", false
	}

	direct := make([]string, 0, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for name := range pkg.Dependencies {
		direct = append(direct, name)
	}
	for name := range pkg.DevDependencies {
		direct = append(direct, name)
	}
	for _, name := range direct {
		nested := filepath.Join(root, "node_modules", name, "node_modules", pkgName)
		if _, err := os.Stat(nested); err == nil {
			return name, true
		}
	}
	return "", false
}
