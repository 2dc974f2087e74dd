package ecosystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/licscan/licscan/pkg/logger"
)

// PubDevResolver is the registry surface the Dart extractor needs. pub.dev
// does not publish license metadata, so packages resolve through their
// GitHub repository instead.
type PubDevResolver interface {
	GitHubResolver
	PubDevRepo(ctx context.Context, name string) (string, string, bool)
}

// DartExtractor prefers pubspec.lock (hosted packages only) and falls
// back to pubspec.yaml dependency declarations across workspace members.
// Packages that exist as local workspace directories are excluded from
// the external dependency set.
type DartExtractor struct {
	Registry PubDevResolver
}

type dartDep struct {
	version string
	isDev   bool
}

// sdk-shipped packages never resolve on pub.dev
var dartSDKDeps = map[string]bool{
	"flutter":             true,
	"flutter_test":        true,
	"flutter_web_plugins": true,
}

func (e *DartExtractor) Extract(ctx context.Context, root string, opts Options) (*Extraction, error) {
	deps := make(map[string]dartDep)
	workspaceCount := 0

	if fileExists(filepath.Join(root, "pubspec.lock")) {
		for name, version := range parsePubspecLock(filepath.Join(root, "pubspec.lock")) {
			deps[name] = dartDep{version: version}
		}
	} else {
		yamlFiles := []string{}
		if fileExists(filepath.Join(root, "pubspec.yaml")) {
			yamlFiles = append(yamlFiles, filepath.Join(root, "pubspec.yaml"))
		}
		for _, extra := range workspacePubspecs(root) {
			yamlFiles = append(yamlFiles, extra)
			workspaceCount++
		}
		for _, yf := range yamlFiles {
			for name, dep := range parsePubspecDeps(yf) {
				if _, ok := deps[name]; !ok {
					deps[name] = dep
				}
			}
		}
	}
	if len(deps) == 0 {
		return nil, fmt.Errorf("no pubspec.lock/yaml found or no hosted dependencies")
	}

	// Drop workspace-internal packages.
	for _, internal := range internalPackageNames(root) {
		delete(deps, internal)
	}
	extraction := &Extraction{IsMonorepo: workspaceCount > 1, WorkspaceCount: workspaceCount}
	if len(deps) == 0 {
		return extraction, nil
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	logger.Info(fmt.Sprintf("Looking up %d Dart package licenses via pub.dev + GitHub", len(names)))
	resolved := 0
	for _, name := range names {
		lic := UnknownLicense
		if e.Registry != nil {
			if owner, repo, ok := e.Registry.PubDevRepo(ctx, name); ok {
				if l, ok := e.Registry.GitHubLicense(ctx, owner, repo); ok {
					lic = l
					resolved++
				}
			}
		}
		extraction.Packages = append(extraction.Packages, Package{
			Name:    name,
			Version: deps[name].version,
			License: lic,
			IsDev:   deps[name].isDev,
		})
	}
	logger.Info(fmt.Sprintf("Resolved %d/%d licenses via GitHub", resolved, len(names)))

	return extraction, nil
}

// parsePubspecLock returns hosted package versions keyed by name.
func parsePubspecLock(path string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lock struct {
		Packages map[string]struct {
			Source  string `yaml:"source"`
			Version string `yaml:"version"`
		} `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil
	}

	hosted := make(map[string]string)
	for name, pkg := range lock.Packages {
		if pkg.Source == "hosted" {
			hosted[name] = pkg.Version
		}
	}
	return hosted
}

// parsePubspecDeps reads the dependencies and dev_dependencies maps of a
// pubspec.yaml. Values may be version strings or structured specs (sdk,
// git, path); structured specs get version "latest".
func parsePubspecDeps(path string) map[string]dartDep {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var pubspec struct {
		Dependencies    map[string]any `yaml:"dependencies"`
		DevDependencies map[string]any `yaml:"dev_dependencies"`
	}
	if err := yaml.Unmarshal(data, &pubspec); err != nil {
		return nil
	}

	deps := make(map[string]dartDep)
	collect := func(m map[string]any, isDev bool) {
		for name, spec := range m {
			if dartSDKDeps[name] {
				continue
			}
			version := "latest"
			if s, ok := spec.(string); ok {
				if trimmed := strings.Trim(s, "'^~>= \""); trimmed != "" {
					version = trimmed
				}
			}
			deps[name] = dartDep{version: version, isDev: isDev}
		}
	}
	collect(pubspec.Dependencies, false)
	collect(pubspec.DevDependencies, true)
	return deps
}

func workspacePubspecs(root string) []string {
	var files []string
	seen := map[string]bool{filepath.Join(root, "pubspec.yaml"): true}
	for _, pattern := range []string{"packages/*/pubspec.yaml", "*/pubspec.yaml"} {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files
}

// internalPackageNames reads the name field of workspace member pubspecs.
func internalPackageNames(root string) []string {
	var names []string
	for _, pattern := range []string{"packages/*/pubspec.yaml", "*/pubspec.yaml"} {
		matches, _ := filepath.Glob(filepath.Join(root, pattern))
		for _, m := range matches {
			data, err := os.ReadFile(m)
			if err != nil {
				continue
			}
			var pubspec struct {
				Name string `yaml:"name"`
			}
			if yaml.Unmarshal(data, &pubspec) == nil && pubspec.Name != "" {
				names = append(names, pubspec.Name)
			}
		}
	}
	return names
}
