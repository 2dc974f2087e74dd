package ecosystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/licscan/licscan/internal/registry"
	"github.com/licscan/licscan/pkg/logger"
)

// GitHubResolver is the registry surface for ecosystems whose packages
// live in GitHub repositories rather than a package registry.
type GitHubResolver interface {
	GitHubLicense(ctx context.Context, owner, repo string) (string, bool)
}

// SwiftExtractor parses Package.resolved pins (format v1, v2, and v3) and
// resolves licenses through the GitHub API. All resolved files found in
// the tree are merged; pins deduplicate on (identity, version).
type SwiftExtractor struct {
	Registry GitHubResolver
}

type swiftPin struct {
	identity string
	version  string
	url      string
}

func (e *SwiftExtractor) Extract(ctx context.Context, root string, opts Options) (*Extraction, error) {
	resolvedFiles := FindPackageResolved(root)
	if len(resolvedFiles) == 0 {
		return nil, fmt.Errorf("no Package.resolved found")
	}

	var pins []swiftPin
	seen := make(map[[2]string]bool)
	for _, rf := range resolvedFiles {
		for _, pin := range parsePackageResolved(rf) {
			key := [2]string{pin.identity, pin.version}
			if seen[key] {
				continue
			}
			seen[key] = true
			pins = append(pins, pin)
		}
	}
	if len(pins) == 0 {
		return nil, fmt.Errorf("no dependencies in Package.resolved")
	}

	logger.Info(fmt.Sprintf("Looking up %d Swift package licenses via GitHub API", len(pins)))
	resolved := 0
	var packages []Package
	for _, pin := range pins {
		lic := UnknownLicense
		if e.Registry != nil {
			if owner, repo, ok := registry.ParseGitHubURL(pin.url); ok {
				if l, ok := e.Registry.GitHubLicense(ctx, owner, repo); ok {
					lic = l
					resolved++
				}
			}
		}
		// Package.resolved does not distinguish dev deps.
		packages = append(packages, Package{Name: pin.identity, Version: pin.version, License: lic})
	}
	logger.Info(fmt.Sprintf("Resolved %d/%d licenses via GitHub", resolved, len(pins)))

	return &Extraction{Packages: packages}, nil
}

func parsePackageResolved(path string) []swiftPin {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var doc struct {
		Version int `json:"version"`
		Object  struct {
			Pins []swiftRawPin `json:"pins"`
		} `json:"object"`
		Pins []swiftRawPin `json:"pins"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	rawPins := doc.Pins
	if doc.Version == 1 {
		rawPins = doc.Object.Pins
	}

	var pins []swiftPin
	for _, pin := range rawPins {
		var identity, url string
		if doc.Version == 1 {
			identity = strings.ToLower(pin.Package)
			url = pin.RepositoryURL
		} else {
			identity = pin.Identity
			url = pin.Location
		}

		version := pin.State.Version
		if version == "" {
			version = pin.State.Branch
		}
		if version == "" {
			version = "unknown"
		}
		pins = append(pins, swiftPin{identity: identity, version: version, url: url})
	}
	return pins
}

type swiftRawPin struct {
	Package       string `json:"package"`
	RepositoryURL string `json:"repositoryURL"`
	Identity      string `json:"identity"`
	Location      string `json:"location"`
	State         struct {
		Version string `json:"version"`
		Branch  string `json:"branch"`
	} `json:"state"`
}
