/*
Copyright © 2025 licscan authors
*/
package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoot() *cobra.Command {
	cmd := newRootCommand()
	registerSubcommands(cmd)
	return cmd
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newTestRoot()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	cmd := newTestRoot()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "scan")
	assert.Contains(t, names, "orgscan")
	assert.Contains(t, names, "version")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "licscan ")
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "licscan ")
}

func TestScanFlagDefaults(t *testing.T) {
	cmd := newScanCommand()

	path, err := cmd.Flags().GetString("path")
	require.NoError(t, err)
	assert.Equal(t, ".", path)

	prodOnly, err := cmd.Flags().GetBool("prod-only")
	require.NoError(t, err)
	assert.False(t, prodOnly)
}

func TestOrgScanFlagDefaults(t *testing.T) {
	cmd := newOrgScanCommand()

	staleDays, err := cmd.Flags().GetInt("stale-days")
	require.NoError(t, err)
	assert.Equal(t, 0, staleDays)

	discoverOnly, err := cmd.Flags().GetBool("discover-only")
	require.NoError(t, err)
	assert.False(t, discoverOnly)
}

func TestExitErrorMessage(t *testing.T) {
	err := &exitError{code: 2}
	assert.Equal(t, "exit code 2", err.Error())
}

func TestSplitCommaList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCommaList("a, b"))
	assert.Equal(t, []string{"acme/app"}, splitCommaList("acme/app,"))
	assert.Nil(t, splitCommaList(""))
}
