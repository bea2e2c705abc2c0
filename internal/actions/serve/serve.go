// Package serve runs the bot server in the foreground, the ExecStart target
// of the service unit.
package serve

import (
	"log"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/spauka/secretsanta/internal/bot"
	"github.com/spauka/secretsanta/internal/config"
	"github.com/spauka/secretsanta/internal/connector"
	"github.com/spauka/secretsanta/internal/paths"
	"github.com/spauka/secretsanta/internal/server"
	"github.com/spauka/secretsanta/internal/store"
)

func Handle(cliCtx *cli.Context) error {
	cfg, err := config.Load(cliCtx.String("config"))
	if err != nil {
		return errors.WithMessage(err, "failed to load configuration, run `secretsanta install` first")
	}

	if cliCtx.IsSet("path") {
		cfg.Server.SocketPath = cliCtx.String("path")
	}
	if cliCtx.IsSet("listen") {
		cfg.Server.ListenAddr = cliCtx.String("listen")
	}

	if cfg.Bot.AppID == "" {
		return errors.New("bot framework app id is not configured")
	}

	ctx, stop := signal.NotifyContext(cliCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return errors.WithMessage(err, "failed to open database")
	}
	defer func() {
		err := st.Close()
		if err != nil {
			log.Println(errors.WithMessage(err, "failed to close database"))
		}
	}()

	err = st.Migrate(ctx)
	if err != nil {
		return errors.WithMessage(err, "failed to migrate database")
	}

	client := connector.New(cfg.Bot.AppID, cfg.Bot.AppPassword)
	b := bot.New(st, client, cfg.Messages)

	log.Printf("starting secret santa bot %s\n", paths.Version)

	return server.New(b, st, cfg.Server).Run(ctx)
}
