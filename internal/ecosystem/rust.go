package ecosystem

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/licscan/licscan/internal/exec"
)

// CargoExtractor reads `cargo metadata` output. Workspace members carry a
// null source and are excluded from the dependency list; more than one
// member marks the project as a workspace.
type CargoExtractor struct{}

func (e *CargoExtractor) Extract(ctx context.Context, root string, opts Options) (*Extraction, error) {
	if !fileExists(filepath.Join(root, "Cargo.toml")) {
		return nil, fmt.Errorf("no Cargo.toml found")
	}

	res, _ := exec.Run(ctx, root, opts.Timeout, "cargo", "metadata", "--format-version=1")
	switch {
	case res.ExitCode == exec.ExitNotFound:
		return nil, fmt.Errorf("cargo not found in PATH")
	case res.ExitCode == exec.ExitTimeout:
		return nil, fmt.Errorf("timeout running cargo metadata")
	case !res.OK():
		return nil, fmt.Errorf("cargo metadata failed: %s", truncate(res.Message(), 200))
	}

	var meta struct {
		Packages []struct {
			ID      string  `json:"id"`
			Name    string  `json:"name"`
			Version string  `json:"version"`
			License string  `json:"license"`
			Source  *string `json:"source"`
		} `json:"packages"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &meta); err != nil {
		return nil, fmt.Errorf("parse cargo metadata: %w", err)
	}

	memberCount := 0
	var packages []Package
	seen := make(map[[2]string]bool)
	for _, pkg := range meta.Packages {
		if pkg.Source == nil {
			memberCount++
			continue
		}
		key := [2]string{pkg.Name, pkg.Version}
		if seen[key] {
			continue
		}
		seen[key] = true

		lic := pkg.License
		if lic == "" {
			lic = UnknownLicense
		}
		// cargo metadata does not distinguish dev deps.
		packages = append(packages, Package{Name: pkg.Name, Version: pkg.Version, License: lic})
	}

	if len(packages) == 0 {
		return nil, fmt.Errorf("no packages found via cargo metadata")
	}
	return &Extraction{
		Packages:       packages,
		IsMonorepo:     memberCount > 1,
		WorkspaceCount: memberCount,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
