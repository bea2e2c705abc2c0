// Package install bootstraps a host: configuration, database, systemd unit.
package install

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/spauka/secretsanta/internal/config"
	"github.com/spauka/secretsanta/internal/paths"
	"github.com/spauka/secretsanta/internal/store"
	"github.com/spauka/secretsanta/pkg/botproc"
	"github.com/spauka/secretsanta/pkg/secrets"
	"github.com/spauka/secretsanta/pkg/service"
	"github.com/spauka/secretsanta/pkg/unit"
	"github.com/spauka/secretsanta/pkg/utils"
)

const consoleSecretLength = 32

//nolint:funlen
func Handle(cliCtx *cli.Context) error {
	ctx := cliCtx.Context

	nonInteractive := cliCtx.Bool("non-interactive")

	cfg := config.Default()
	if utils.IsFileExists(cliCtx.String("config")) {
		var err error
		cfg, err = config.Load(cliCtx.String("config"))
		if err != nil {
			return err
		}
		fmt.Println("Found existing configuration, keeping unset values")
	}

	appID, err := stringValue(cliCtx, "app-id", "Bot Framework app id: ", nonInteractive, cfg.Bot.AppID)
	if err != nil {
		return err
	}
	cfg.Bot.AppID = appID

	appPassword, err := passwordValue(cliCtx, nonInteractive, cfg.Bot.AppPassword)
	if err != nil {
		return err
	}
	cfg.Bot.AppPassword = appPassword

	if cliCtx.IsSet("dsn") {
		cfg.Database.DSN = cliCtx.String("dsn")
	}

	for _, dir := range []string{paths.DefaultConfigDir, paths.DefaultDataPath, cfg.Server.LogDir} {
		err = makeDirIfMissing(dir)
		if err != nil {
			return err
		}
	}

	if cfg.Console.SecretHash == "" {
		var secret string
		secret, err = secrets.Generate(consoleSecretLength)
		if err != nil {
			return err
		}
		cfg.Console.SecretHash, err = secrets.Hash(secret)
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Println("Admin console secret (write it down, it is not stored):")
		fmt.Println(" ", secret)
	}

	err = config.Save(cfg, cliCtx.String("config"))
	if err != nil {
		return err
	}
	fmt.Println("Wrote configuration to", cliCtx.String("config"))

	st, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return errors.WithMessage(err, "failed to open database")
	}
	defer func() {
		_ = st.Close()
	}()
	err = st.Migrate(ctx)
	if err != nil {
		return errors.WithMessage(err, "failed to migrate database")
	}
	fmt.Println("Database ready")

	err = installBinary(cliCtx.String("binary"))
	if err != nil {
		return err
	}

	return installService(cliCtx, cfg)
}

// HandleService installs only the service unit, for hosts where the
// configuration and database were prepared by hand.
func HandleService(cliCtx *cli.Context) error {
	cfg, err := config.Load(cliCtx.String("config"))
	if err != nil {
		return errors.WithMessage(err, "failed to load configuration, run `secretsanta install` first")
	}

	return installService(cliCtx, cfg)
}

func stringValue(
	cliCtx *cli.Context, flag, question string, nonInteractive bool, current string,
) (string, error) {
	if cliCtx.IsSet(flag) {
		return cliCtx.String(flag), nil
	}
	if current != "" {
		return current, nil
	}
	if nonInteractive {
		return "", errors.Errorf("--%s is required in non-interactive mode", flag)
	}

	return utils.Ask(question, false, nil)
}

func passwordValue(cliCtx *cli.Context, nonInteractive bool, current string) (string, error) {
	if cliCtx.IsSet("app-password") {
		return cliCtx.String("app-password"), nil
	}
	if current != "" {
		return current, nil
	}
	if nonInteractive {
		return "", errors.New("--app-password is required in non-interactive mode")
	}

	fd := int(syscall.Stdin) //nolint:unconvert
	if !term.IsTerminal(fd) {
		return utils.Ask("Bot Framework app password: ", false, nil)
	}

	fmt.Print("Bot Framework app password: ")
	password, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", errors.WithMessage(err, "failed to read password")
	}

	return string(password), nil
}

func makeDirIfMissing(dir string) error {
	_, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return errors.WithMessagef(os.MkdirAll(dir, 0755), "failed to create %s", dir)
	}

	return errors.WithMessagef(err, "failed to stat %s", dir)
}

// installBinary places the running executable at the path the unit refers
// to. Skipped when already running from there.
func installBinary(target string) error {
	exePath, err := os.Executable()
	if err != nil {
		return errors.WithMessage(err, "failed to locate executable")
	}
	if exePath == target {
		return nil
	}

	err = utils.Copy(exePath, target)
	if err != nil {
		return errors.WithMessagef(err, "failed to install binary to %s", target)
	}
	err = os.Chmod(target, 0755)
	if err != nil {
		return errors.WithMessage(err, "failed to set binary permissions")
	}
	fmt.Println("Installed binary to", target)

	return nil
}

func installService(cliCtx *cli.Context, cfg config.Config) error {
	ctx := cliCtx.Context

	init, err := botproc.DetectInit(ctx)
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to detect init"))
	}
	if init != botproc.InitSystemd {
		fmt.Println("No systemd detected, skipping service installation.")
		fmt.Println("Start the bot with: secretsanta service start")

		return nil
	}

	rendered, err := unit.Render(unit.Config{
		ServiceName:   paths.ServiceName,
		User:          cliCtx.String("user"),
		Group:         cliCtx.String("group"),
		BinaryPath:    cliCtx.String("binary"),
		ConfigPath:    cliCtx.String("config"),
		SocketPath:    cfg.Server.SocketPath,
		OutputLogPath: paths.DefaultOutputLogPath,
		ErrorLogPath:  paths.DefaultErrorLogPath,
	})
	if err != nil {
		return err
	}

	err = utils.WriteContentsToFile([]byte(rendered), paths.SystemdUnitPath, 0644)
	if err != nil {
		return errors.WithMessage(err, "failed to write service unit")
	}
	fmt.Println("Wrote service unit to", paths.SystemdUnitPath)

	err = service.DaemonReload(ctx)
	if err != nil {
		return errors.WithMessage(err, "failed to reload systemd")
	}

	err = service.Enable(ctx, paths.ServiceName)
	if err != nil {
		return errors.WithMessage(err, "failed to enable service")
	}
	fmt.Println("Service enabled. Start it with: secretsanta service start")

	return nil
}
