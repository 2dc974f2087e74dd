package license

import "strings"

// tierRank orders tiers from most to least permissive for SPDX operand
// selection. Lower is more permissive.
var tierRank = map[string]int{
	TierPermissive:   0,
	TierWeakCopyleft: 1,
	TierRestrictive:  2,
	TierUnknown:      3,
}

func rankOf(tier string) int {
	if r, ok := tierRank[tier]; ok {
		return r
	}
	return 3
}

// Normalize maps a raw license string through the alias table.
func (c *Config) Normalize(raw string) string {
	if raw == "" {
		return "UNKNOWN"
	}
	trimmed := strings.TrimSpace(raw)
	if normalized, ok := c.Aliases[trimmed]; ok {
		return normalized
	}
	return trimmed
}

// TierOf classifies an already-normalized license string against the
// configured tier membership lists. Unmatched strings land in unknown.
func (c *Config) TierOf(normalized string) string {
	for tier, licenses := range c.LicenseTiers {
		for _, lic := range licenses {
			if normalized == lic {
				return tier
			}
		}
	}
	return TierUnknown
}

// EvaluateSPDX evaluates a possible SPDX boolean expression, returning the
// governing operand's normalized form and tier.
//
// OR picks the most permissive operand (the recipient may choose), AND the
// most restrictive (the recipient must comply with all). Slash-delimited
// dual licenses ("MIT/Apache-2.0", "Apache-2.0 / MIT") are treated as OR,
// but only when splitting yields at least one recognized license token —
// this guards identifiers that legitimately contain a slash.
func (c *Config) EvaluateSPDX(expr string) (string, string) {
	if strings.Contains(expr, " OR ") {
		return c.pickBest(splitOperands(expr, " OR "), expr)
	}
	if strings.Contains(expr, " AND ") {
		return c.pickWorst(splitOperands(expr, " AND "), expr)
	}

	if strings.Contains(expr, "/") && !strings.Contains(expr, " ") {
		parts := splitOperands(expr, "/")
		if c.anyKnown(parts) {
			return c.pickBest(parts, expr)
		}
	}
	if strings.Contains(expr, " / ") {
		parts := splitOperands(expr, " / ")
		if c.anyKnown(parts) {
			return c.pickBest(parts, expr)
		}
	}

	norm := c.Normalize(expr)
	return norm, c.TierOf(norm)
}

func splitOperands(expr, sep string) []string {
	raw := strings.Split(expr, sep)
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		parts = append(parts, strings.Trim(strings.TrimSpace(p), "()"))
	}
	return parts
}

func (c *Config) anyKnown(parts []string) bool {
	for _, p := range parts {
		if c.TierOf(c.Normalize(p)) != TierUnknown {
			return true
		}
	}
	return false
}

// pickBest returns the most permissive operand. When no operand is
// recognized the original expression is reported with tier unknown.
func (c *Config) pickBest(parts []string, original string) (string, string) {
	bestTier := TierUnknown
	bestLicense := original
	for _, part := range parts {
		norm := c.Normalize(part)
		tier := c.TierOf(norm)
		if rankOf(tier) < rankOf(bestTier) {
			bestTier = tier
			bestLicense = norm
		}
	}
	return bestLicense, bestTier
}

// pickWorst returns the most restrictive operand.
func (c *Config) pickWorst(parts []string, original string) (string, string) {
	worstTier := TierPermissive
	worstLicense := original
	for _, part := range parts {
		norm := c.Normalize(part)
		tier := c.TierOf(norm)
		if rankOf(tier) > rankOf(worstTier) {
			worstTier = tier
			worstLicense = norm
		}
	}
	return worstLicense, worstTier
}
