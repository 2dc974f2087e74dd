package ecosystem

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Detect identifies the package manager governing a project directory.
// The empty string means nothing recognizable was found.
//
// Foundry projects are checked before JS lockfiles because they usually
// carry a package.json for tooling deps alongside foundry.toml. Among JS
// lockfiles, pnpm-lock.yaml wins over yarn.lock wins over
// package-lock.json; a package.json with only a packageManager field is
// the last JS resort.
func Detect(projectPath string) string {
	if fileExists(filepath.Join(projectPath, "foundry.toml")) {
		return PMSolidity
	}

	if fileExists(filepath.Join(projectPath, "pnpm-lock.yaml")) {
		return PMPnpm
	}
	if fileExists(filepath.Join(projectPath, "yarn.lock")) {
		return PMYarn
	}
	if fileExists(filepath.Join(projectPath, "package-lock.json")) {
		return PMNpm
	}

	if pm := packageManagerField(filepath.Join(projectPath, "package.json")); pm != "" {
		return pm
	}

	if fileExists(filepath.Join(projectPath, "Cargo.lock")) || fileExists(filepath.Join(projectPath, "Cargo.toml")) {
		return PMCargo
	}

	if fileExists(filepath.Join(projectPath, "gradle", "libs.versions.toml")) {
		return PMGradle
	}
	for _, f := range []string{"build.gradle.kts", "build.gradle", "settings.gradle.kts"} {
		if fileExists(filepath.Join(projectPath, f)) {
			return PMGradle
		}
	}

	if len(FindPackageResolved(projectPath)) > 0 {
		return PMSwift
	}

	if fileExists(filepath.Join(projectPath, "pubspec.lock")) || fileExists(filepath.Join(projectPath, "pubspec.yaml")) {
		return PMDart
	}

	if fileExists(filepath.Join(projectPath, "go.sum")) || fileExists(filepath.Join(projectPath, "go.mod")) {
		return PMGo
	}

	if fileExists(filepath.Join(projectPath, "Directory.Packages.props")) {
		return PMCSharp
	}
	if globMatches(projectPath, "*.csproj") || globMatches(projectPath, "*.sln") {
		return PMCSharp
	}

	if fileExists(filepath.Join(projectPath, "poetry.lock")) {
		return PMPoetry
	}
	if fileExists(filepath.Join(projectPath, "uv.lock")) {
		return PMUv
	}
	if fileExists(filepath.Join(projectPath, "Pipfile.lock")) {
		return PMPipenv
	}
	if fileExists(filepath.Join(projectPath, "requirements.txt")) {
		return PMPip
	}

	return ""
}

func packageManagerField(pkgJSONPath string) string {
	data, err := os.ReadFile(pkgJSONPath)
	if err != nil {
		return ""
	}
	var pkg struct {
		PackageManager string `json:"packageManager"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ""
	}
	switch {
	case strings.HasPrefix(pkg.PackageManager, "pnpm"):
		return PMPnpm
	case strings.HasPrefix(pkg.PackageManager, "yarn"):
		return PMYarn
	case strings.HasPrefix(pkg.PackageManager, "npm"):
		return PMNpm
	}
	return ""
}

// FindPackageResolved locates Swift Package.resolved files, including the
// copies Xcode stashes inside .xcodeproj and .xcworkspace bundles.
func FindPackageResolved(projectPath string) []string {
	candidates := []string{
		filepath.Join(projectPath, "Package.resolved"),
		filepath.Join(projectPath, ".package.resolved"),
	}

	root := os.DirFS(projectPath)
	for _, pattern := range []string{"**/*.xcodeproj", "**/*.xcworkspace"} {
		matches, err := doublestar.Glob(root, pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			bundle := filepath.Join(projectPath, filepath.FromSlash(m))
			if strings.HasSuffix(m, ".xcodeproj") {
				candidates = append(candidates,
					filepath.Join(bundle, "project.xcworkspace", "xcshareddata", "swiftpm", "Package.resolved"))
			} else {
				candidates = append(candidates,
					filepath.Join(bundle, "xcshareddata", "swiftpm", "Package.resolved"))
			}
		}
	}

	var found []string
	for _, c := range candidates {
		if fileExists(c) {
			found = append(found, c)
		}
	}
	return found
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func globMatches(dir, pattern string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	return err == nil && len(matches) > 0
}
