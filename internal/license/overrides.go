package license

import "github.com/bmatcuk/doublestar/v4"

// FindOverride returns the override matching a package name, if any.
// Exact matches are checked before glob patterns so that a literal entry
// always beats a wildcard one.
func (c *Config) FindOverride(name string) (*Override, bool) {
	if ov, ok := c.LicenseOverrides[name]; ok {
		return &ov, true
	}
	for pattern, ov := range c.LicenseOverrides {
		if matched, err := doublestar.Match(pattern, name); err == nil && matched {
			return &ov, true
		}
	}
	return nil, false
}
