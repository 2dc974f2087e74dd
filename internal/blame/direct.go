package blame

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/licscan/licscan/internal/ecosystem"
)

// isDirectDependency reports whether the package is declared in one of
// the project's own manifests. A direct dependency blames itself; only
// transitive ones need chain tracing.
func isDirectDependency(root, pm, pkgName string) bool {
	switch pm {
	case ecosystem.PMPnpm, ecosystem.PMNpm, ecosystem.PMYarn:
		return inPackageJSONManifests(root, pkgName)
	case ecosystem.PMCargo:
		return inCargoManifests(root, pkgName)
	case ecosystem.PMPoetry, ecosystem.PMUv:
		return inPyproject(filepath.Join(root, "pyproject.toml"), pkgName)
	case ecosystem.PMPipenv:
		return inKeyValueManifest(filepath.Join(root, "Pipfile"), pkgName)
	case ecosystem.PMPip:
		return inRequirements(filepath.Join(root, "requirements.txt"), pkgName)
	}
	return false
}

func inPackageJSONManifests(root, pkgName string) bool {
	matches, err := doublestar.Glob(os.DirFS(root), "**/package.json")
	if err != nil {
		return false
	}
	for _, m := range matches {
		if strings.Contains(m, "node_modules") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(m)))
		if err != nil {
			continue
		}
		var pkg struct {
			Dependencies    map[string]string `json:"dependencies"`
			DevDependencies map[string]string `json:"devDependencies"`
		}
		if json.Unmarshal(data, &pkg) != nil {
			continue
		}
		if _, ok := pkg.Dependencies[pkgName]; ok {
			return true
		}
		if _, ok := pkg.DevDependencies[pkgName]; ok {
			return true
		}
	}
	return false
}

// inCargoManifests looks for the crate under any dependencies table,
// including dev-dependencies and target-specific tables.
func inCargoManifests(root, pkgName string) bool {
	matches, err := doublestar.Glob(os.DirFS(root), "**/Cargo.toml")
	if err != nil {
		return false
	}
	for _, m := range matches {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(m)))
		if err != nil {
			continue
		}
		var manifest map[string]any
		if toml.Unmarshal(data, &manifest) != nil {
			continue
		}
		if depTablesContain(manifest, pkgName) {
			return true
		}
	}
	return false
}

func depTablesContain(node map[string]any, pkgName string) bool {
	for key, value := range node {
		sub, isMap := value.(map[string]any)
		if (key == "dependencies" || key == "dev-dependencies" || key == "build-dependencies") && isMap {
			if _, ok := sub[pkgName]; ok {
				return true
			}
		}
		if isMap && depTablesContain(sub, pkgName) {
			return true
		}
	}
	return false
}

// inPyproject matches both the table form (pkg = "^1.0") and the PEP 621
// list form ("pkg>=1.0"). Python package names compare case-insensitively.
func inPyproject(path, pkgName string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	content := string(data)

	lineRe := regexp.MustCompile(`(?im)^\s*` + regexp.QuoteMeta(pkgName) + `\s*=`)
	if lineRe.MatchString(content) {
		return true
	}
	listRe := regexp.MustCompile(`(?i)["'](` + regexp.QuoteMeta(pkgName) + `)[>=<~!\s'"]`)
	return listRe.MatchString(content)
}

func inKeyValueManifest(path, pkgName string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	lineRe := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(pkgName) + `\s*=`)
	for _, line := range strings.Split(string(data), "\n") {
		if lineRe.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func inRequirements(path, pkgName string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		for _, sep := range []string{"==", ">=", "["} {
			if idx := strings.Index(name, sep); idx >= 0 {
				name = name[:idx]
			}
		}
		if strings.EqualFold(strings.TrimSpace(name), pkgName) {
			return true
		}
	}
	return false
}
