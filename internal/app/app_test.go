package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/spauka/secretsanta/internal/paths"
	"github.com/spauka/secretsanta/pkg/unit"
)

// runServe parses args with the serve action stubbed out and returns the
// flag values the action would see.
func runServe(t *testing.T, args []string) (path, config string) {
	t.Helper()

	app := newApp()
	ran := false
	for _, cmd := range app.Commands {
		if cmd.Name != "serve" {
			continue
		}
		cmd.Action = func(cliCtx *cli.Context) error {
			ran = true
			path = cliCtx.String("path")
			config = cliCtx.String("config")

			return nil
		}
	}

	require.NoError(t, app.Run(args))
	require.True(t, ran, "serve action did not run")

	return path, config
}

// The service unit passes flags after the command name; the CLI has to
// accept the ExecStart line exactly as rendered.
func Test_Serve_UnitExecStart(t *testing.T) {
	rendered, err := unit.Render(unit.Config{
		ServiceName:   paths.ServiceName,
		User:          paths.ServiceName,
		Group:         paths.ServiceName,
		BinaryPath:    paths.DefaultBinaryPath,
		ConfigPath:    paths.DefaultConfigFilePath,
		SocketPath:    paths.DefaultSocketPath,
		OutputLogPath: paths.DefaultOutputLogPath,
		ErrorLogPath:  paths.DefaultErrorLogPath,
	})
	require.NoError(t, err)

	execStart := ""
	for _, line := range strings.Split(rendered, "\n") {
		if strings.HasPrefix(line, "ExecStart=") {
			execStart = strings.TrimPrefix(line, "ExecStart=")
		}
	}
	require.NotEmpty(t, execStart)

	args := strings.Fields(execStart)
	args[0] = "secretsanta"

	path, config := runServe(t, args)
	assert.Equal(t, paths.DefaultSocketPath, path)
	assert.Equal(t, paths.DefaultConfigFilePath, config)
}

// The fork fallback starts the server with `serve --config <file>`.
func Test_Serve_ForkArguments(t *testing.T) {
	_, config := runServe(t, []string{
		"secretsanta", "serve", "--config", "/tmp/secretsanta.yaml",
	})

	assert.Equal(t, "/tmp/secretsanta.yaml", config)
}
