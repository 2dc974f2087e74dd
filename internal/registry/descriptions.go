package registry

import (
	"context"
	"net/url"
	"strings"
)

// NPMDescription fetches a package's description for report enrichment.
func (c *Client) NPMDescription(ctx context.Context, name string) (string, bool) {
	encoded := strings.ReplaceAll(url.PathEscape(name), "%40", "@")
	var doc struct {
		Description string `json:"description"`
	}
	if err := c.getJSON(ctx, c.NPMBase+"/"+encoded, nil, &doc); err != nil {
		return "", false
	}
	return doc.Description, doc.Description != ""
}

// CratesDescription fetches a crate's description.
func (c *Client) CratesDescription(ctx context.Context, name string) (string, bool) {
	var doc struct {
		Crate struct {
			Description string `json:"description"`
		} `json:"crate"`
	}
	if err := c.getJSON(ctx, c.CratesBase+"/"+url.PathEscape(name), nil, &doc); err != nil {
		return "", false
	}
	return doc.Crate.Description, doc.Crate.Description != ""
}

// PyPIDescription fetches a package's one-line summary.
func (c *Client) PyPIDescription(ctx context.Context, name string) (string, bool) {
	var doc struct {
		Info struct {
			Summary string `json:"summary"`
		} `json:"info"`
	}
	if err := c.getJSON(ctx, c.PyPIBase+"/"+url.PathEscape(name)+"/json", nil, &doc); err != nil {
		return "", false
	}
	return doc.Info.Summary, doc.Info.Summary != ""
}
