// Package exitcode provides standardized exit codes for licscan
package exitcode

// Exit codes for the licscan CLI. ViolationFound is deliberately distinct
// from GeneralError so that CI automation can gate on license violations
// without conflating them with scanner failures.
const (
	Success         = 0
	GeneralError    = 1
	ViolationFound  = 2
	ConfigError     = 3
	DetectionError  = 4
	ExtractionError = 5
	NetworkError    = 6
	TimeoutError    = 7
	ToolNotFound    = 9
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ViolationFound:
		return "Restrictive license violation found"
	case ConfigError:
		return "Configuration error"
	case DetectionError:
		return "No supported package manager detected"
	case ExtractionError:
		return "Dependency extraction failed"
	case NetworkError:
		return "Network error"
	case TimeoutError:
		return "Timeout error"
	case ToolNotFound:
		return "Tool not found"
	default:
		return "Unknown error"
	}
}
