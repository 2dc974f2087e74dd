package orgscan

import "strings"

// Note is curated advisory guidance for a known non-permissive package:
// a permissive alternative (or why there is none) and how hard removal
// would be.
type Note struct {
	Alternative string
	Removable   string
}

// packageNotes is the exact-name knowledge base for common
// non-permissive packages seen across scans.
var packageNotes = map[string]Note{
	// MPL-2.0 packages
	"@ethereumjs/rlp": {
		Alternative: "rlp (MIT), a drop-in replacement",
		Removable:   "Easy, swap import",
	},
	"@ethereumjs/tx": {
		Alternative: "ethers.js Transaction (MIT) or viem (MIT)",
		Removable:   "Moderate, API differences",
	},
	"@ethereumjs/util": {
		Alternative: "ethers.js utils (MIT) or viem (MIT)",
		Removable:   "Moderate, widely used utility",
	},
	"axe-core": {
		Alternative: "No permissive alternative for a11y testing",
		Removable:   "No, industry standard for accessibility",
	},
	"turbo": {
		Alternative: "nx (MIT) or wireit (Apache-2.0)",
		Removable:   "Hard, build system migration required",
	},
	"turbo-darwin-arm64": {
		Alternative: "See turbo, platform binary",
		Removable:   "See turbo",
	},
	"turbo-darwin-x64": {
		Alternative: "See turbo, platform binary",
		Removable:   "See turbo",
	},
	"turbo-linux-64": {
		Alternative: "See turbo, platform binary",
		Removable:   "See turbo",
	},
	"@vercel/style-guide": {
		Alternative: "eslint-config-airbnb (MIT) or custom ESLint config",
		Removable:   "Easy, dev dependency, swap ESLint config",
	},
	"webextension-polyfill": {
		Alternative: "No permissive alternative (Mozilla standard)",
		Removable:   "No, required for browser extension compat",
	},
	"rpc-websockets": {
		Alternative: "ws (MIT) + custom RPC layer, or jayson (MIT)",
		Removable:   "Moderate, transitive dep from Solana libs",
	},
	// LGPL packages
	"@img/sharp-libvips-darwin-arm64": {
		Alternative: "sharp links to libvips (LGPL), dynamic linking OK",
		Removable:   "Easy, only matters if distributing binaries",
	},
	// Custom licenses
	"@metamask/sdk": {
		Alternative: "No, required for MetaMask wallet integration",
		Removable:   "No, core wallet connector",
	},
	"@metamask/sdk-communication-layer": {
		Alternative: "See @metamask/sdk, sub-package",
		Removable:   "See @metamask/sdk",
	},
	"@metamask/sdk-install-modal-web": {
		Alternative: "See @metamask/sdk, sub-package",
		Removable:   "See @metamask/sdk",
	},
	// Unknown licenses
	"@braze/web-sdk": {
		Alternative: "No, proprietary analytics SDK",
		Removable:   "Yes if Braze not needed, check product requirements",
	},
	"@sentry/cli": {
		Alternative: "FSL-1.1-MIT converts to MIT after 2 years; or use Sentry self-hosted",
		Removable:   "Easy, dev/CI tooling only",
	},
	"@sentry/cli-darwin": {
		Alternative: "See @sentry/cli, platform binary",
		Removable:   "See @sentry/cli",
	},
}

// packagePrefixNotes covers whole package families.
var packagePrefixNotes = map[string]Note{
	"@reown/": {
		Alternative: "First-party, Reown Community License is self-issued",
		Removable:   "N/A, own packages",
	},
}

// NotesFor looks up advisory notes for a package, exact name first,
// then family prefixes.
func NotesFor(name string) (Note, bool) {
	if note, ok := packageNotes[name]; ok {
		return note, true
	}
	for prefix, note := range packagePrefixNotes {
		if strings.HasPrefix(name, prefix) {
			return note, true
		}
	}
	return Note{}, false
}
