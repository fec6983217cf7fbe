package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annobatch/annobatch/internal/cli"
	"github.com/annobatch/annobatch/pkg/version"
)

func TestMainComponents(t *testing.T) {
	t.Run("version available", func(t *testing.T) {
		assert.NotEmpty(t, version.GetVersion())
	})

	t.Run("cli root command", func(t *testing.T) {
		root := cli.NewRootCmd(version.GetVersion())
		require.NotNil(t, root)
		assert.Equal(t, "annobatch", root.Use)
		assert.NotEmpty(t, root.Version)
	})
}

func TestRootCommandHelp(t *testing.T) {
	root := cli.NewRootCmd(version.GetVersion())
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "run")
	assert.Contains(t, buf.String(), "estimate")
}
