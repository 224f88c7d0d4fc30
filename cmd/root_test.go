package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "analyze", "stage", "improve", "analyses", "migrate"} {
		assert.True(t, names[want], "command %s should be registered", want)
	}
}

func TestAnalysesSubcommands(t *testing.T) {
	sub := make(map[string]bool)
	for _, c := range analysesCmd.Commands() {
		sub[c.Name()] = true
	}
	for _, want := range []string{"list", "get", "delete"} {
		assert.True(t, sub[want], "subcommand %s should be registered", want)
	}
}

func TestStageFlags(t *testing.T) {
	f := stageCmd.Flags().Lookup("regenerate")
	require.NotNil(t, f)
	assert.Equal(t, "false", f.DefValue)
}

func TestOwnerFlagDefault(t *testing.T) {
	f := rootCmd.PersistentFlags().Lookup("owner")
	require.NotNil(t, f)
	assert.Equal(t, "cli", f.DefValue)
}
