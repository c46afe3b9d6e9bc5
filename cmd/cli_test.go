package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, Version+"\n", out.String())
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("VOICELINE_DATABASE_URL", "")

	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"migrate"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL required")
}

func TestSeedRequiresDatabaseURL(t *testing.T) {
	t.Setenv("VOICELINE_DATABASE_URL", "")

	root := newRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"seed"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL required")
}
