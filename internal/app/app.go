package app

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/spauka/secretsanta/internal/actions/install"
	"github.com/spauka/secretsanta/internal/actions/santa"
	"github.com/spauka/secretsanta/internal/actions/selfupdate"
	"github.com/spauka/secretsanta/internal/actions/sendlogs"
	"github.com/spauka/secretsanta/internal/actions/serve"
	"github.com/spauka/secretsanta/internal/actions/svc"
	"github.com/spauka/secretsanta/internal/actions/ui"
	contextInternal "github.com/spauka/secretsanta/internal/context"
	"github.com/spauka/secretsanta/internal/paths"
)

func Run(args []string) {
	// The server logs to stdout/stderr so the service unit can append them
	// to its log files; management commands get their own dated log.
	logname := ""
	if len(args) < 2 || args[1] != "serve" {
		logname = setupLogFile()
	}

	err := newApp().Run(args)
	if err != nil {
		fmt.Println(err)
		if logname != "" {
			fmt.Println("See details in log file:", logname)
		}
		log.Fatal(err)
	}
}

//nolint:funlen
func newApp() *cli.App {
	return &cli.App{
		Name:    "secretsanta",
		Usage:   "Secret Santa bot and its management tools",
		Version: paths.Version,
		Before: func(context *cli.Context) error {
			var err error
			context.Context, err = contextInternal.SetOSContext(context.Context)
			if err != nil {
				return err
			}

			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: paths.DefaultConfigFilePath,
				Usage: "Path to the configuration file",
			},
			&cli.BoolFlag{
				Name:  "non-interactive",
				Value: false,
			},
		},
		Commands: []*cli.Command{
			{
				Name:        "serve",
				Description: "Run the bot server in the foreground",
				Usage:       "Run the bot server in the foreground",
				Action:      serve.Handle,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Unix socket path to listen on",
					},
					&cli.StringFlag{
						Name:  "listen",
						Usage: "TCP address to listen on instead of a unix socket",
					},
					// The service unit passes --config after the command
					// name, so serve carries its own flag.
					&cli.StringFlag{
						Name:  "config",
						Value: paths.DefaultConfigFilePath,
						Usage: "Path to the configuration file",
					},
				},
			},
			{
				Name:        "install",
				Aliases:     []string{"i"},
				Description: "Install the bot: configuration, database and service unit",
				Usage:       "Install the bot",
				Action:      install.Handle,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "app-id",
						Usage: "Bot Framework application id",
					},
					&cli.StringFlag{
						Name:  "app-password",
						Usage: "Bot Framework application password",
					},
					&cli.StringFlag{
						Name:  "dsn",
						Usage: "Database DSN (sqlite:<path>, mysql:<dsn> or postgres:<dsn>)",
					},
					&cli.StringFlag{
						Name:  "user",
						Value: paths.ServiceName,
						Usage: "System user the service runs as",
					},
					&cli.StringFlag{
						Name:  "group",
						Value: paths.ServiceName,
						Usage: "System group the service runs as",
					},
					&cli.StringFlag{
						Name:  "binary",
						Value: paths.DefaultBinaryPath,
						Usage: "Where to install the bot binary",
					},
				},
			},
			{
				Name:        "service",
				Aliases:     []string{"s"},
				Description: "Service actions",
				Usage:       "Service actions",
				Subcommands: []*cli.Command{
					{
						Name:   "install",
						Usage:  "Install and enable the systemd service unit",
						Action: install.HandleService,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "user",
								Value: paths.ServiceName,
								Usage: "System user the service runs as",
							},
							&cli.StringFlag{
								Name:  "group",
								Value: paths.ServiceName,
								Usage: "System group the service runs as",
							},
							&cli.StringFlag{
								Name:  "binary",
								Value: paths.DefaultBinaryPath,
								Usage: "Bot binary path the unit starts",
							},
						},
					},
					{
						Name:   "start",
						Usage:  "Start the bot service",
						Action: svc.Start,
					},
					{
						Name:   "stop",
						Usage:  "Stop the bot service",
						Action: svc.Stop,
					},
					{
						Name:    "restart",
						Aliases: []string{"r"},
						Usage:   "Restart the bot service",
						Action:  svc.Restart,
					},
					{
						Name:   "status",
						Usage:  "Show the bot service status",
						Action: svc.Status,
					},
				},
			},
			{
				Name:        "santa",
				Description: "Administer exchanges from the command line",
				Usage:       "Administer exchanges",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List exchanges and participants",
						Action: santa.List,
					},
					{
						Name:   "draw",
						Usage:  "Draw the gift circle",
						Action: santa.Draw,
						Flags: []cli.Flag{
							&cli.Int64Flag{
								Name:  "exchange",
								Usage: "Exchange id",
							},
							&cli.BoolFlag{
								Name:  "redo",
								Usage: "Redraw even if allocations exist",
							},
						},
					},
					{
						Name:   "send-all",
						Usage:  "Send every participant their allocation card",
						Action: santa.SendAll,
						Flags: []cli.Flag{
							&cli.Int64Flag{
								Name:  "exchange",
								Usage: "Exchange id",
							},
						},
					},
					{
						Name:   "send",
						Usage:  "Send one participant their allocation card",
						Action: santa.SendTo,
						Flags: []cli.Flag{
							&cli.Int64Flag{
								Name:  "exchange",
								Usage: "Exchange id",
							},
							&cli.StringFlag{
								Name:  "to",
								Usage: "Participant name",
							},
						},
					},
				},
			},
			{
				Name:        "console",
				Aliases:     []string{"ui"},
				Description: "Run the local admin console",
				Usage:       "Run the local admin console",
				Action:      ui.Handle,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Value: "localhost:17080",
					},
					&cli.BoolFlag{
						Name: "no-browser",
					},
				},
			},
			{
				Name:        "send-logs",
				Description: "Send logs to support",
				Usage:       "Send logs to support",
				Action:      sendlogs.Handle,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "include-logs",
						Usage: "Additional log files to include",
					},
				},
			},
			{
				Name:        "self-update",
				Description: "Update the binary to the latest release",
				Usage:       "Update the binary to the latest release",
				Action:      selfupdate.Handle,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name: "force",
					},
				},
			},
		},
	}
}

// setupLogFile routes the standard logger to a dated file under the log
// directory. On hosts where that is not writable (development, first run
// before install) logging stays on stderr.
func setupLogFile() string {
	if _, err := os.Stat(paths.DefaultLogDir); errors.Is(err, fs.ErrNotExist) {
		err := os.MkdirAll(paths.DefaultLogDir, 0755)
		if err != nil {
			return ""
		}
	}

	logname := filepath.Join(paths.DefaultLogDir,
		fmt.Sprintf("ctl_%s.log", time.Now().Format("2006-01-02_15-04-05")))
	logFile, err := os.OpenFile(logname, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return ""
	}

	log.SetOutput(logFile)

	return logname
}
