package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand("test")
	require.NotNil(t, cmd)
	assert.Equal(t, "planner", cmd.Use)
	assert.Equal(t, "test", cmd.Version)
	assert.Contains(t, cmd.Long, "recurring patterns")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand("test")
	commands := []string{"migrate", "refresh", "preview", "seed", "mcp"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand("test")

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand("test")

	for _, name := range []string{"migrate", "refresh"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			dryRun := sub.Flags().Lookup("dry-run")
			require.NotNil(t, dryRun)
			assert.Equal(t, "false", dryRun.DefValue)

			horizon := sub.Flags().Lookup("horizon")
			require.NotNil(t, horizon)
			assert.Equal(t, "0", horizon.DefValue)
		})
	}
}

func TestPreviewCommandFlags(t *testing.T) {
	cmd := NewRootCommand("test")
	previewCmd, _, err := cmd.Find([]string{"preview"})
	require.NoError(t, err)

	for _, name := range []string{"rule", "anchor", "from", "to"} {
		assert.NotNil(t, previewCmd.Flags().Lookup(name), name)
	}
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestUsageErrorsExitTwo(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid format", []string{"--format", "invalid", "migrate"}, "invalid format"},
		{"unknown flag", []string{"migrate", "--bogus"}, "unknown flag"},
		{"too many args", []string{"migrate", "u1", "u2"}, "accepts at most 1 arg"},
		{"unknown command", []string{"frobnicate"}, "unknown command"},
		{"seed without fixture", []string{"seed"}, "accepts 1 arg"},
		{"negative horizon", []string{"refresh", "--horizon", "-3"}, "--horizon"},
		{"preview missing flags", []string{"preview", "--anchor", "2026-10-19"}, "--rule, --to"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			cmd := NewRootCommand("test")
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}
