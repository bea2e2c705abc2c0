// Package unit renders the systemd service unit that supervises the bot.
package unit

import (
	"bytes"
	"text/template"

	"github.com/pkg/errors"
)

const systemdUnitTemplate = `[Unit]
Description=Secret Santa Bot
After=network.target
Wants=network-online.target

[Service]
Type=simple
User={{.User}}
Group={{.Group}}

ExecStart={{.BinaryPath}} serve --path={{.SocketPath}} --config={{.ConfigPath}}

# The socket starts group-inaccessible, open it up once the bot is ready.
ExecStartPost=/bin/sh -c "sleep 1; chmod 770 {{.SocketPath}}"

# Logs survive restarts, appended rather than truncated.
StandardOutput=append:{{.OutputLogPath}}
StandardError=append:{{.ErrorLogPath}}

# Restart policy
Restart=on-failure
RestartSec=5

# Filesystem permissions
ProtectSystem=full
RuntimeDirectory={{.ServiceName}}
LogsDirectory={{.ServiceName}}

[Install]
WantedBy=multi-user.target
`

type Config struct {
	ServiceName   string
	User          string
	Group         string
	BinaryPath    string
	ConfigPath    string
	SocketPath    string
	OutputLogPath string
	ErrorLogPath  string
}

// Render produces the unit file contents for the given configuration.
func Render(cfg Config) (string, error) {
	tmpl, err := template.New("unit").Parse(systemdUnitTemplate)
	if err != nil {
		return "", errors.WithMessage(err, "failed to parse unit template")
	}

	buf := bytes.Buffer{}
	err = tmpl.Execute(&buf, cfg)
	if err != nil {
		return "", errors.WithMessage(err, "failed to render unit template")
	}

	return buf.String(), nil
}
