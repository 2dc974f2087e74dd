package ecosystem

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// DetectWorkspaces resolves a monorepo's workspace member directories.
// pnpm reads pnpm-workspace.yaml; npm and yarn read the workspaces field
// of package.json (array form or the {"packages": [...]} object form).
// Only directories that contain their own package.json count.
func DetectWorkspaces(projectPath, pm string) []string {
	var globs []string

	if pm == PMPnpm {
		globs = pnpmWorkspaceGlobs(filepath.Join(projectPath, "pnpm-workspace.yaml"))
	} else {
		globs = packageJSONWorkspaces(filepath.Join(projectPath, "package.json"))
	}

	var dirs []string
	for _, pattern := range globs {
		clean := strings.TrimRight(pattern, "/")
		switch {
		case strings.HasSuffix(clean, "/*"):
			// "packages/*" means one level of member dirs.
			parent := strings.TrimSuffix(clean, "/*")
			dirs = append(dirs, expandGlob(projectPath, parent+"/*")...)
		case strings.Contains(clean, "*"):
			dirs = append(dirs, expandGlob(projectPath, clean)...)
		default:
			p := filepath.Join(projectPath, clean)
			if isWorkspaceDir(p) {
				dirs = append(dirs, p)
			}
		}
	}
	return dirs
}

func pnpmWorkspaceGlobs(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var ws struct {
		Packages []string `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil
	}
	return ws.Packages
}

func packageJSONWorkspaces(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var pkg struct {
		Workspaces json.RawMessage `json:"workspaces"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil || len(pkg.Workspaces) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(pkg.Workspaces, &list); err == nil {
		return list
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(pkg.Workspaces, &obj); err == nil {
		return obj.Packages
	}
	return nil
}

func expandGlob(projectPath, pattern string) []string {
	matches, err := doublestar.Glob(os.DirFS(projectPath), pattern)
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	var dirs []string
	for _, m := range matches {
		p := filepath.Join(projectPath, filepath.FromSlash(m))
		if isWorkspaceDir(p) {
			dirs = append(dirs, p)
		}
	}
	return dirs
}

func isWorkspaceDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	return fileExists(filepath.Join(path, "package.json"))
}
