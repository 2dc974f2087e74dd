package ecosystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/licscan/licscan/internal/exec"
	"github.com/licscan/licscan/pkg/logger"
)

// JSExtractor handles the npm-family managers. pnpm projects go through
// `pnpm licenses list --json`; npm and yarn projects (and pnpm when its
// CLI yields nothing) fall back to walking installed node_modules trees.
type JSExtractor struct {
	PM string
}

func (e *JSExtractor) Extract(ctx context.Context, root string, opts Options) (*Extraction, error) {
	workspaces := DetectWorkspaces(root, e.PM)

	var packages []Package
	if e.PM == PMPnpm {
		packages = e.pnpmLicenses(ctx, root, opts)
		if len(packages) == 0 {
			logger.Debug("pnpm licenses returned no results, falling back to node_modules")
			packages = walkNodeModules(root, opts.ProdOnly)
		}
	} else {
		packages = walkNodeModules(root, opts.ProdOnly)
	}

	if len(packages) == 0 {
		if !fileExists(filepath.Join(root, "node_modules")) {
			return nil, fmt.Errorf("dependencies not installed, run `%s install` first", e.PM)
		}
		return nil, fmt.Errorf("no packages found")
	}

	return &Extraction{
		Packages:       packages,
		IsMonorepo:     len(workspaces) > 0,
		WorkspaceCount: len(workspaces),
	}, nil
}

// pnpmLicenses shells out to pnpm. Its JSON output groups packages by
// license id: {"MIT": [{"name": ..., "versions": [...]}, ...], ...}.
// Errors degrade to an empty slice so the node_modules walk can take over.
func (e *JSExtractor) pnpmLicenses(ctx context.Context, root string, opts Options) []Package {
	args := []string{"licenses", "list", "--json"}
	if opts.ProdOnly {
		args = append(args, "--prod")
	}

	res, _ := exec.Run(ctx, root, opts.Timeout, "pnpm", args...)
	if res.ExitCode == exec.ExitNotFound {
		logger.Warn("pnpm not found in PATH")
		return nil
	}
	if res.ExitCode == exec.ExitTimeout {
		logger.Warn("timeout running pnpm licenses list")
		return nil
	}
	output := strings.TrimSpace(res.Stdout)
	if output == "" {
		if msg := res.Message(); msg != "" {
			logger.Warn("pnpm licenses error: " + msg)
		}
		return nil
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(output), &data); err != nil {
		logger.Warn("failed to parse pnpm licenses JSON output")
		return nil
	}

	// pnpm reports {"error": {...}} when deps are not installed.
	if raw, ok := data["error"]; ok {
		var pnpmErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &pnpmErr) == nil && pnpmErr.Message != "" {
			logger.Warn("pnpm licenses error: " + pnpmErr.Message)
			return nil
		}
	}

	type pnpmPkg struct {
		Name     string   `json:"name"`
		Version  string   `json:"version"`
		Versions []string `json:"versions"`
	}

	licenseIDs := make([]string, 0, len(data))
	for id := range data {
		licenseIDs = append(licenseIDs, id)
	}
	sort.Strings(licenseIDs)

	var packages []Package
	seen := make(map[[2]string]bool)
	for _, licenseID := range licenseIDs {
		var pkgs []pnpmPkg
		if err := json.Unmarshal(data[licenseID], &pkgs); err != nil {
			continue
		}
		for _, p := range pkgs {
			version := p.Version
			if len(p.Versions) > 0 {
				version = p.Versions[0]
			}
			key := [2]string{p.Name, version}
			if seen[key] {
				continue
			}
			seen[key] = true
			packages = append(packages, Package{
				Name:    p.Name,
				Version: version,
				License: licenseID,
				// pnpm --prod already filtered dev deps out.
				IsDev: false,
			})
		}
	}
	return packages
}

// walkNodeModules reads each installed package's package.json directly.
// Dev classification comes from the root manifest's devDependencies keys;
// private packages (workspace members) are skipped.
func walkNodeModules(root string, prodOnly bool) []Package {
	nm := filepath.Join(root, "node_modules")
	if !fileExists(nm) {
		return nil
	}

	devDeps := rootDevDependencies(filepath.Join(root, "package.json"))

	var packages []Package
	seen := make(map[[2]string]bool)

	process := func(pkgDir, name string) {
		data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
		if err != nil {
			return
		}
		var pkg struct {
			Version  string          `json:"version"`
			Private  bool            `json:"private"`
			License  json.RawMessage `json:"license"`
			Licenses []struct {
				Type string `json:"type"`
			} `json:"licenses"`
		}
		if err := json.Unmarshal(data, &pkg); err != nil {
			return
		}
		if pkg.Private {
			return
		}

		key := [2]string{name, pkg.Version}
		if seen[key] {
			return
		}
		seen[key] = true

		lic := decodeManifestLicense(pkg.License)
		if lic == "" && len(pkg.Licenses) > 0 {
			var types []string
			for _, l := range pkg.Licenses {
				if l.Type != "" {
					types = append(types, l.Type)
				}
			}
			lic = strings.Join(types, " OR ")
		}
		if lic == "" {
			lic = UnknownLicense
		}

		isDev := devDeps[name]
		if prodOnly && isDev {
			return
		}
		packages = append(packages, Package{Name: name, Version: pkg.Version, License: lic, IsDev: isDev})
	}

	entries, err := os.ReadDir(nm)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if strings.HasPrefix(entry.Name(), "@") {
			scoped, err := os.ReadDir(filepath.Join(nm, entry.Name()))
			if err != nil {
				continue
			}
			for _, sub := range scoped {
				if sub.IsDir() && !strings.HasPrefix(sub.Name(), ".") {
					process(filepath.Join(nm, entry.Name(), sub.Name()), entry.Name()+"/"+sub.Name())
				}
			}
		} else {
			process(filepath.Join(nm, entry.Name()), entry.Name())
		}
	}
	return packages
}

func rootDevDependencies(pkgJSONPath string) map[string]bool {
	devDeps := make(map[string]bool)
	data, err := os.ReadFile(pkgJSONPath)
	if err != nil {
		return devDeps
	}
	var pkg struct {
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return devDeps
	}
	for name := range pkg.DevDependencies {
		devDeps[name] = true
	}
	return devDeps
}

// decodeManifestLicense tolerates both the modern string form and the
// legacy {"type": ...} object form of the license field.
func decodeManifestLicense(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Type
	}
	return ""
}
