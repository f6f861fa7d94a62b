package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "salesmix", cmd.Use)
	assert.Contains(t, cmd.Long, "Liquidation")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "validate", "limits", "test", "status"}

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
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	configFlag := runCmd.Flags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "salesmix.yaml", configFlag.DefValue)
	assert.NotNil(t, runCmd.Flags().Lookup("dry-run"))
}

func TestLimitsCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	limitsCmd, _, err := cmd.Find([]string{"limits"})
	require.NoError(t, err)

	for _, name := range []string{"start", "end", "output", "fraction", "price"} {
		assert.NotNil(t, limitsCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "o", limitsCmd.Flags().Lookup("output").Shorthand)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	_, _, err := execute(cmd, "--format", "yaml", "validate", "--config", "missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootDryRunEndToEnd(t *testing.T) {
	cfgPath := newWorkspace(t)

	stdout, _, err := execute(NewRootCommand(), "run", "--config", cfgPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Dry run: 3 rows in 9 tables")
}
