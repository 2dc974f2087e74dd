package registry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/beevik/etree"
)

var pomNameToSPDX = map[string]string{
	"The Apache Software License, Version 2.0": "Apache-2.0",
	"Apache License, Version 2.0":              "Apache-2.0",
	"Apache-2.0":                               "Apache-2.0",
	"Apache 2.0":                               "Apache-2.0",
	"Apache License 2.0":                       "Apache-2.0",
	"The Apache License, Version 2.0":          "Apache-2.0",
	"MIT License":                              "MIT",
	"The MIT License":                          "MIT",
	"MIT":                                      "MIT",
	"BSD License":                              "BSD-3-Clause",
	"BSD 3-Clause License":                     "BSD-3-Clause",
	"BSD-3-Clause":                             "BSD-3-Clause",
	"The BSD License":                          "BSD-2-Clause",
	"Eclipse Public License 1.0":               "EPL-1.0",
	"Eclipse Public License v2.0":              "EPL-2.0",
	"Eclipse Public License - v 2.0":           "EPL-2.0",
	"GNU Lesser General Public License":        "LGPL-2.1",
	"LGPL-2.1":                                 "LGPL-2.1",
	"GNU General Public License, version 2":    "GPL-2.0",
	"Mozilla Public License 2.0":               "MPL-2.0",
	"Mozilla Public License, Version 2.0":      "MPL-2.0",
	"Bouncy Castle Licence":                    "MIT",
	"ISC License":                              "ISC",
}

// MavenLicense looks up an artifact's license from its Maven Central POM,
// falling back to Google's Maven repository for Android artifact groups.
func (c *Client) MavenLicense(ctx context.Context, group, artifact, version string) (string, bool) {
	groupPath := mavenGroupPath(group)
	path := fmt.Sprintf("%s/%s/%s/%s-%s.pom",
		groupPath, url.PathEscape(artifact), url.PathEscape(version),
		url.PathEscape(artifact), url.PathEscape(version))

	if lic, ok := c.pomLicense(ctx, c.MavenBase+"/"+path); ok {
		return lic, true
	}

	if strings.HasPrefix(group, "com.google.") ||
		strings.HasPrefix(group, "com.android.") ||
		strings.HasPrefix(group, "androidx.") {
		return c.pomLicense(ctx, c.GoogleMavenBase+"/"+path)
	}
	return "", false
}

// mavenGroupPath converts a dotted group ID to a repository path, escaping
// each segment to prevent path traversal from untrusted coordinates.
func mavenGroupPath(group string) string {
	segs := strings.Split(group, ".")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// pomLicense fetches a POM and extracts the first recognized license name,
// or the raw first name when none maps to SPDX.
func (c *Client) pomLicense(ctx context.Context, pomURL string) (string, bool) {
	body, err := c.get(ctx, pomURL, nil)
	if err != nil {
		return "", false
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return "", false
	}

	names := doc.FindElements("//licenses/license/name")
	if len(names) == 0 {
		return "", false
	}
	for _, el := range names {
		name := strings.TrimSpace(el.Text())
		if spdx, ok := pomNameToSPDX[name]; ok {
			return spdx, true
		}
	}
	return strings.TrimSpace(names[0].Text()), true
}
