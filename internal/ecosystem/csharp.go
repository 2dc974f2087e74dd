package ecosystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/licscan/licscan/pkg/logger"
)

// NuGetResolver is the registry surface the C# extractor needs.
type NuGetResolver interface {
	NuGetLicense(ctx context.Context, name, version string) (string, bool)
}

// CSharpExtractor collects PackageReference entries from .csproj files
// and PackageVersion entries from Directory.Packages.props (central
// package management), then resolves licenses through the NuGet API.
type CSharpExtractor struct {
	Registry NuGetResolver
}

func (e *CSharpExtractor) Extract(ctx context.Context, root string, opts Options) (*Extraction, error) {
	csprojFiles, _ := doublestar.Glob(os.DirFS(root), "**/*.csproj")

	scanFiles := make([]string, 0, len(csprojFiles)+1)
	for _, m := range csprojFiles {
		scanFiles = append(scanFiles, filepath.Join(root, filepath.FromSlash(m)))
	}
	if fileExists(filepath.Join(root, "Directory.Packages.props")) {
		scanFiles = append(scanFiles, filepath.Join(root, "Directory.Packages.props"))
	}

	var refs []Package
	seen := make(map[string]bool)
	for _, f := range scanFiles {
		for _, ref := range parseMSBuildPackageRefs(f) {
			if seen[ref.Name] {
				continue
			}
			seen[ref.Name] = true
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no .csproj files found or no NuGet dependencies")
	}

	logger.Info(fmt.Sprintf("Looking up %d NuGet package licenses", len(refs)))
	resolved := 0
	packages := make([]Package, 0, len(refs))
	for _, ref := range refs {
		lic := UnknownLicense
		if e.Registry != nil {
			if l, ok := e.Registry.NuGetLicense(ctx, ref.Name, ref.Version); ok {
				lic = l
				resolved++
			}
		}
		ref.License = lic
		packages = append(packages, ref)
	}
	logger.Info(fmt.Sprintf("Resolved %d/%d licenses via NuGet", resolved, len(refs)))

	return &Extraction{
		Packages:       packages,
		IsMonorepo:     len(csprojFiles) > 1,
		WorkspaceCount: len(csprojFiles),
	}, nil
}

// parseMSBuildPackageRefs extracts PackageReference and PackageVersion
// elements with both Include and Version attributes. Version-less
// references (centrally managed) are picked up from the props file's
// PackageVersion entries instead.
func parseMSBuildPackageRefs(path string) []Package {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil
	}

	var refs []Package
	for _, tag := range []string{"PackageReference", "PackageVersion"} {
		for _, el := range doc.FindElements("//" + tag) {
			name := el.SelectAttrValue("Include", "")
			version := el.SelectAttrValue("Version", "")
			if name != "" && version != "" {
				refs = append(refs, Package{Name: name, Version: version})
			}
		}
	}
	return refs
}
