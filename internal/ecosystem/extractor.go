package ecosystem

import (
	"github.com/licscan/licscan/internal/registry"
)

// ForPM returns the extractor responsible for a detected package manager.
// A single registry client serves every ecosystem's lookup needs.
func ForPM(pm string, client *registry.Client) (Extractor, bool) {
	switch pm {
	case PMPnpm, PMNpm, PMYarn:
		return &JSExtractor{PM: pm}, true
	case PMCargo:
		return &CargoExtractor{}, true
	case PMPoetry, PMUv, PMPipenv, PMPip:
		return &PythonExtractor{PM: pm, Registry: client}, true
	case PMSwift:
		return &SwiftExtractor{Registry: client}, true
	case PMGradle:
		return &GradleExtractor{Registry: client}, true
	case PMDart:
		return &DartExtractor{Registry: client}, true
	case PMGo:
		return &GoExtractor{Registry: client}, true
	case PMCSharp:
		return &CSharpExtractor{Registry: client}, true
	case PMSolidity:
		return &SolidityExtractor{Registry: client}, true
	}
	return nil, false
}
