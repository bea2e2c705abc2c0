// Package svc starts, stops and inspects the supervised bot service,
// falling back to direct process control where no init system is available.
package svc

import (
	"context"
	"fmt"
	"log"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/spauka/secretsanta/internal/paths"
	"github.com/spauka/secretsanta/pkg/botproc"
	"github.com/spauka/secretsanta/pkg/service"
)

const processName = "secretsanta"

func Start(cliCtx *cli.Context) error {
	ctx := cliCtx.Context

	init, err := botproc.DetectInit(ctx)
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to detect init"))
	}

	if init == botproc.InitSystemd {
		err = service.Start(ctx, paths.ServiceName)
		if err != nil {
			return errors.WithMessage(err, "failed to start service")
		}
		fmt.Println("Service started")

		return nil
	}

	return startFork(ctx, cliCtx.String("config"))
}

func startFork(ctx context.Context, configPath string) error {
	log.Println("Starting bot (fork)")

	p, err := botproc.FindProcess(ctx, processName)
	if err != nil {
		return errors.WithMessage(err, "failed to find bot process")
	}
	if p != nil && p.Pid != 0 {
		return botproc.NewAlreadyRunningError(p.Pid)
	}

	exePath, err := exec.LookPath(processName)
	if err != nil {
		return errors.WithMessage(err, "failed to lookup bot binary")
	}

	err = botproc.StartFork(exePath, []string{"serve", "--config", configPath}, paths.DefaultDataPath)
	if err != nil {
		return err
	}
	fmt.Println("Bot started")

	return nil
}

func Stop(cliCtx *cli.Context) error {
	ctx := cliCtx.Context

	init, err := botproc.DetectInit(ctx)
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to detect init"))
	}

	if init == botproc.InitSystemd {
		err = service.Stop(ctx, paths.ServiceName)
		if err != nil {
			return errors.WithMessage(err, "failed to stop service")
		}
		fmt.Println("Service stopped")

		return nil
	}

	p, err := botproc.FindProcess(ctx, processName)
	if err != nil {
		return errors.WithMessage(err, "failed to find bot process")
	}
	if p == nil {
		fmt.Println("Bot is not running")

		return nil
	}

	err = botproc.TerminateAndKill(ctx, p)
	if err != nil {
		return err
	}
	fmt.Println("Bot stopped")

	return nil
}

func Restart(cliCtx *cli.Context) error {
	ctx := cliCtx.Context

	init, err := botproc.DetectInit(ctx)
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to detect init"))
	}

	if init == botproc.InitSystemd {
		err = service.Restart(ctx, paths.ServiceName)
		if err != nil {
			return errors.WithMessage(err, "failed to restart service")
		}
		fmt.Println("Service restarted")

		return nil
	}

	err = Stop(cliCtx)
	if err != nil {
		return err
	}

	return startFork(ctx, cliCtx.String("config"))
}

func Status(cliCtx *cli.Context) error {
	ctx := cliCtx.Context

	init, err := botproc.DetectInit(ctx)
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to detect init"))
	}

	if init == botproc.InitSystemd {
		var errNotFound *service.NotFoundError
		err = service.Status(ctx, paths.ServiceName)
		switch {
		case errors.Is(err, service.ErrInactiveService):
			fmt.Println("Service is inactive")
		case errors.As(err, &errNotFound):
			fmt.Println("Service is not installed, run `secretsanta install` first")
		case err != nil:
			return errors.WithMessage(err, "failed to get service status")
		default:
			fmt.Println("Service is active")
		}

		return nil
	}

	p, err := botproc.FindProcess(ctx, processName)
	if err != nil {
		return errors.WithMessage(err, "failed to find bot process")
	}
	if p == nil {
		fmt.Println("Bot is not running")

		return nil
	}
	fmt.Println("Bot is running with pid", p.Pid)

	return nil
}
