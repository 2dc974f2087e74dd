package ecosystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"github.com/licscan/licscan/pkg/logger"
)

// MavenResolver is the registry surface the Gradle extractor needs.
type MavenResolver interface {
	MavenLicense(ctx context.Context, group, artifact, version string) (string, bool)
}

// GradleExtractor merges the version catalog (gradle/libs.versions.toml)
// with direct coordinates declared in build.gradle.kts files, then
// resolves licenses from Maven Central POMs. Gradle has no lockfile with
// license data, so extraction is entirely manifest plus registry.
type GradleExtractor struct {
	Registry MavenResolver
}

type mavenCoord struct {
	group    string
	artifact string
	version  string
}

var gradleDepRe = regexp.MustCompile(`(?:implementation|api|compileOnly|runtimeOnly|ksp|kapt)\s*\(\s*"([^"]+)"`)
var gradlePackagingRe = regexp.MustCompile(`@\w+$`)
var gradleIncludeRe = regexp.MustCompile(`include\s*\(`)

func (e *GradleExtractor) Extract(ctx context.Context, root string, opts Options) (*Extraction, error) {
	var coords []mavenCoord
	seen := make(map[[2]string]bool)
	add := func(c mavenCoord) {
		key := [2]string{c.group, c.artifact}
		if c.group == "" || c.artifact == "" || seen[key] {
			return
		}
		seen[key] = true
		coords = append(coords, c)
	}

	for _, c := range parseVersionCatalog(filepath.Join(root, "gradle", "libs.versions.toml")) {
		add(c)
	}
	for _, c := range parseGradleBuildFiles(root) {
		add(c)
	}
	if len(coords) == 0 {
		return nil, fmt.Errorf("no dependencies found in Gradle project")
	}

	moduleCount := gradleModuleCount(root)

	logger.Info(fmt.Sprintf("Looking up %d Gradle dependency licenses via Maven Central", len(coords)))
	resolved := 0
	var packages []Package
	for _, c := range coords {
		lic := UnknownLicense
		if c.version != "" && e.Registry != nil {
			if l, ok := e.Registry.MavenLicense(ctx, c.group, c.artifact, c.version); ok {
				lic = l
				resolved++
			}
		}
		version := c.version
		if version == "" {
			version = "unknown"
		}
		packages = append(packages, Package{
			Name:    c.group + ":" + c.artifact,
			Version: version,
			License: lic,
		})
	}
	logger.Info(fmt.Sprintf("Resolved %d/%d licenses via Maven Central", resolved, len(coords)))

	return &Extraction{
		Packages:       packages,
		IsMonorepo:     moduleCount > 1,
		WorkspaceCount: moduleCount,
	}, nil
}

// parseVersionCatalog reads the [versions] and [libraries] tables.
// Library entries come in three shapes:
//
//	alias = "group:artifact:version"
//	alias = { module = "group:artifact", version.ref = "someVersion" }
//	alias = { group = "g", name = "a", version = "1.0" }
func parseVersionCatalog(path string) []mavenCoord {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var catalog struct {
		Versions  map[string]any `toml:"versions"`
		Libraries map[string]any `toml:"libraries"`
	}
	if err := toml.Unmarshal(data, &catalog); err != nil {
		return nil
	}

	versionOf := func(ref string) string {
		if v, ok := catalog.Versions[ref].(string); ok {
			return v
		}
		return ref
	}

	var coords []mavenCoord
	for _, raw := range catalog.Libraries {
		switch val := raw.(type) {
		case string:
			parts := strings.Split(val, ":")
			if len(parts) >= 3 {
				coords = append(coords, mavenCoord{group: parts[0], artifact: parts[1], version: parts[2]})
			} else if len(parts) == 2 {
				coords = append(coords, mavenCoord{group: parts[0], artifact: parts[1]})
			}
		case map[string]any:
			var c mavenCoord
			if module, ok := val["module"].(string); ok && strings.Contains(module, ":") {
				pieces := strings.SplitN(module, ":", 2)
				c.group, c.artifact = pieces[0], pieces[1]
			} else {
				c.group, _ = val["group"].(string)
				c.artifact, _ = val["name"].(string)
			}
			switch v := val["version"].(type) {
			case string:
				c.version = v
			case map[string]any:
				if ref, ok := v["ref"].(string); ok {
					c.version = versionOf(ref)
				}
			}
			coords = append(coords, c)
		}
	}
	return coords
}

// parseGradleBuildFiles scans build.gradle.kts files for coordinates
// declared outside the version catalog. Interpolated coordinates
// ("$someVar:...") are skipped.
func parseGradleBuildFiles(root string) []mavenCoord {
	matches, err := doublestar.Glob(os.DirFS(root), "**/build.gradle.kts")
	if err != nil {
		return nil
	}

	var coords []mavenCoord
	for _, m := range matches {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(m)))
		if err != nil {
			continue
		}
		for _, match := range gradleDepRe.FindAllStringSubmatch(string(data), -1) {
			coord := gradlePackagingRe.ReplaceAllString(match[1], "")
			parts := strings.Split(coord, ":")
			if len(parts) >= 3 && !strings.HasPrefix(parts[0], "$") {
				coords = append(coords, mavenCoord{group: parts[0], artifact: parts[1], version: parts[2]})
			}
		}
	}
	return coords
}

func gradleModuleCount(root string) int {
	for _, name := range []string{"settings.gradle.kts", "settings.gradle"} {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		return len(gradleIncludeRe.FindAllString(string(data), -1))
	}
	return 0
}
