package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/projecthub/internal/printer"
)

// resetFlags puts every flag of cmd and its children back to its default, so
// package-level flag variables do not leak between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the real root command with args and returns what it wrote to
// stdout and stderr, including printer output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	restore := printer.SetOutput(&stdout, &stderr)
	defer restore()

	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	stdout, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "projecthub")
	for _, sub := range []string{"init", "migrate", "seed", "serve", "tasks", "watch"} {
		assert.Contains(t, stdout, sub)
	}
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := execute(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_RejectsSubcommandFlags(t *testing.T) {
	t.Run("subcommand flag on root", func(t *testing.T) {
		_, _, err := execute(t, "--project", "DEMO")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown flag")
	})

	t.Run("flag of a sibling subcommand", func(t *testing.T) {
		_, _, err := execute(t, "migrate", "--force")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown flag")
	})
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc1234", "2024-03-04")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	stdout, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.True(t, strings.Contains(stdout, "1.2.3 (commit: abc1234, built: 2024-03-04)"), stdout)
}
