package ecosystem

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/licscan/licscan/pkg/logger"
)

// PyPIResolver is the registry surface the Python extractor needs.
type PyPIResolver interface {
	PyPILicense(ctx context.Context, name, version string) (string, bool)
}

// PythonExtractor handles poetry, uv, pipenv, and pip projects. Python
// lockfiles carry no license metadata, so every package is resolved
// against PyPI during extraction.
type PythonExtractor struct {
	PM       string
	Registry PyPIResolver
}

type rawPythonPkg struct {
	name    string
	version string
	isDev   bool
	// devKnown marks lockfiles that classify dev deps themselves
	// (Pipfile.lock); otherwise pyproject.toml dev groups decide.
	devKnown bool
}

func (e *PythonExtractor) Extract(ctx context.Context, root string, opts Options) (*Extraction, error) {
	var raw []rawPythonPkg
	var lockName string
	switch e.PM {
	case PMPoetry:
		lockName = "poetry.lock"
		raw = parsePoetryLock(filepath.Join(root, lockName))
	case PMUv:
		// uv.lock shares the [[package]] table layout with poetry.lock.
		lockName = "uv.lock"
		raw = parsePoetryLock(filepath.Join(root, lockName))
	case PMPipenv:
		lockName = "Pipfile.lock"
		raw = parsePipfileLock(filepath.Join(root, lockName))
	case PMPip:
		lockName = "requirements.txt"
		raw = parseRequirementsTxt(filepath.Join(root, lockName))
	default:
		return nil, fmt.Errorf("unsupported python package manager %q", e.PM)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("no packages found in %s", lockName)
	}

	devDeps := make(map[string]bool)
	if e.PM == PMPoetry || e.PM == PMUv {
		devDeps = pyprojectDevDeps(filepath.Join(root, "pyproject.toml"))
	}

	logger.Info(fmt.Sprintf("Looking up %d Python package licenses via PyPI", len(raw)))

	var packages []Package
	for i, r := range raw {
		isDev := r.isDev
		if !r.devKnown {
			isDev = devDeps[strings.ToLower(r.name)]
		}
		if opts.ProdOnly && isDev {
			continue
		}

		lic := UnknownLicense
		if e.Registry != nil {
			if resolved, ok := e.Registry.PyPILicense(ctx, r.name, r.version); ok {
				lic = resolved
			}
		}
		packages = append(packages, Package{Name: r.name, Version: r.version, License: lic, IsDev: isDev})

		if (i+1)%50 == 0 {
			logger.Info(fmt.Sprintf("Looked up %d/%d", i+1, len(raw)))
			// Stay polite to PyPI on large dependency sets.
			time.Sleep(200 * time.Millisecond)
		}
	}

	extraction := &Extraction{Packages: packages}
	if e.PM == PMPoetry || e.PM == PMUv {
		extraction.IsMonorepo = pyprojectHasPackagesTable(filepath.Join(root, "pyproject.toml"))
	}
	return extraction, nil
}

// parsePoetryLock decodes the [[package]] tables of poetry.lock / uv.lock.
func parsePoetryLock(path string) []rawPythonPkg {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lock struct {
		Package []struct {
			Name    string `toml:"name"`
			Version string `toml:"version"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil
	}
	var pkgs []rawPythonPkg
	for _, p := range lock.Package {
		if p.Name == "" {
			continue
		}
		pkgs = append(pkgs, rawPythonPkg{name: p.Name, version: p.Version})
	}
	return pkgs
}

func parsePipfileLock(path string) []rawPythonPkg {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lock struct {
		Default map[string]struct {
			Version string `json:"version"`
		} `json:"default"`
		Develop map[string]struct {
			Version string `json:"version"`
		} `json:"develop"`
	}
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil
	}

	var pkgs []rawPythonPkg
	for name, info := range lock.Default {
		pkgs = append(pkgs, rawPythonPkg{
			name:     name,
			version:  strings.TrimLeft(info.Version, "="),
			devKnown: true,
		})
	}
	for name, info := range lock.Develop {
		pkgs = append(pkgs, rawPythonPkg{
			name:     name,
			version:  strings.TrimLeft(info.Version, "="),
			isDev:    true,
			devKnown: true,
		})
	}
	return pkgs
}

func parseRequirementsTxt(path string) []rawPythonPkg {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var pkgs []rawPythonPkg
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}

		matched := false
		for _, sep := range []string{"==", ">=", "<=", "~=", "!=", ">", "<"} {
			idx := strings.Index(line, sep)
			if idx < 0 {
				continue
			}
			name := strings.TrimSpace(strings.SplitN(line[:idx], "[", 2)[0])
			version := line[idx+len(sep):]
			version = strings.TrimSpace(strings.SplitN(strings.SplitN(version, ",", 2)[0], ";", 2)[0])
			pkgs = append(pkgs, rawPythonPkg{name: name, version: version, devKnown: true})
			matched = true
			break
		}
		if !matched {
			// Unpinned requirement.
			name := strings.TrimSpace(strings.SplitN(strings.SplitN(line, "[", 2)[0], ";", 2)[0])
			if name != "" {
				pkgs = append(pkgs, rawPythonPkg{name: name, devKnown: true})
			}
		}
	}
	return pkgs
}

// pyprojectDevDeps collects dev dependency names (lowercased) from the
// poetry dev group tables and the uv dev-dependencies list.
func pyprojectDevDeps(path string) map[string]bool {
	devDeps := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return devDeps
	}

	var pyproject struct {
		Tool struct {
			Poetry struct {
				DevDependencies map[string]any `toml:"dev-dependencies"`
				Group           map[string]struct {
					Dependencies map[string]any `toml:"dependencies"`
				} `toml:"group"`
			} `toml:"poetry"`
			Uv struct {
				DevDependencies []string `toml:"dev-dependencies"`
			} `toml:"uv"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &pyproject); err != nil {
		return devDeps
	}

	for name := range pyproject.Tool.Poetry.DevDependencies {
		devDeps[strings.ToLower(name)] = true
	}
	if dev, ok := pyproject.Tool.Poetry.Group["dev"]; ok {
		for name := range dev.Dependencies {
			devDeps[strings.ToLower(name)] = true
		}
	}
	for _, spec := range pyproject.Tool.Uv.DevDependencies {
		name := spec
		for _, sep := range []string{"==", ">=", "<=", "~=", "!=", ">", "<", "["} {
			if idx := strings.Index(name, sep); idx >= 0 {
				name = name[:idx]
			}
		}
		if name = strings.TrimSpace(name); name != "" {
			devDeps[strings.ToLower(name)] = true
		}
	}
	return devDeps
}

func pyprojectHasPackagesTable(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "[tool.poetry.packages]")
}
