// Package service drives the init system that supervises the bot. Systemd
// is the primary target, with a fallback to the service(8) wrapper for
// distributions that still route through it.
package service

import (
	"context"
	"log"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/pkg/errors"

	contextInternal "github.com/spauka/secretsanta/internal/context"
)

var (
	once    = sync.Once{}
	service Service
)

type Service interface {
	Start(ctx context.Context, serviceName string) error
	Stop(ctx context.Context, serviceName string) error
	Restart(ctx context.Context, serviceName string) error
	Status(ctx context.Context, serviceName string) error
	DaemonReload(ctx context.Context) error
	Enable(ctx context.Context, serviceName string) error
}

func Start(ctx context.Context, serviceName string) error {
	s, err := Load(ctx)
	if err != nil {
		return err
	}

	return s.Start(ctx, serviceName)
}

func Stop(ctx context.Context, serviceName string) error {
	s, err := Load(ctx)
	if err != nil {
		return err
	}

	return s.Stop(ctx, serviceName)
}

func Restart(ctx context.Context, serviceName string) error {
	s, err := Load(ctx)
	if err != nil {
		return err
	}
	err = s.Restart(ctx, serviceName)
	if err != nil {
		slog.WarnContext(
			ctx,
			"failed to restart",
			slog.String("err", err.Error()),
		)
		err = s.Stop(ctx, serviceName)
		if err != nil {
			slog.WarnContext(
				ctx,
				"failed to stop",
				slog.String("err", err.Error()),
			)
		}

		return s.Start(ctx, serviceName)
	}

	return nil
}

func Status(ctx context.Context, serviceName string) error {
	s, err := Load(ctx)
	if err != nil {
		return err
	}

	return s.Status(ctx, serviceName)
}

func DaemonReload(ctx context.Context) error {
	s, err := Load(ctx)
	if err != nil {
		return err
	}

	return s.DaemonReload(ctx)
}

func Enable(ctx context.Context, serviceName string) error {
	s, err := Load(ctx)
	if err != nil {
		return err
	}

	return s.Enable(ctx, serviceName)
}

//nolint:ireturn,nolintlint
func Load(ctx context.Context) (Service, error) {
	osInfo := contextInternal.OSInfoFromContext(ctx)

	once.Do(func() {
		service = chooseBackend(osInfo.Distribution, exec.LookPath)
	})

	if service == nil {
		return nil, NewErrUnsupportedDistribution(osInfo.Distribution)
	}

	return service, nil
}

// chooseBackend prefers systemctl and falls back to the service(8) wrapper.
// A missing systemctl is not an error as long as a fallback exists.
//
//nolint:ireturn,nolintlint
func chooseBackend(distribution string, lookPath func(string) (string, error)) Service {
	if distribution == "windows" {
		return NewWindows()
	}

	if _, err := lookPath("systemctl"); err == nil {
		return NewSystemd()
	}

	if _, err := lookPath("service"); err == nil {
		return NewBasic()
	}

	return nil
}

type Systemd struct{}

func NewSystemd() *Systemd {
	return &Systemd{}
}

func (s *Systemd) systemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	cmd.Stderr = log.Writer()
	cmd.Stdout = log.Writer()
	slog.Debug(cmd.String())

	return cmd.Run()
}

func (s *Systemd) Start(_ context.Context, serviceName string) error {
	return s.systemctl("start", serviceName)
}

func (s *Systemd) Stop(_ context.Context, serviceName string) error {
	return s.systemctl("stop", serviceName)
}

func (s *Systemd) Restart(_ context.Context, serviceName string) error {
	return s.systemctl("restart", serviceName)
}

func (s *Systemd) DaemonReload(_ context.Context) error {
	return s.systemctl("daemon-reload")
}

func (s *Systemd) Enable(_ context.Context, serviceName string) error {
	return s.systemctl("enable", serviceName)
}

const (
	systemDStatusInactive = 3
	systemDStatusNotFound = 4
)

func (s *Systemd) Status(_ context.Context, serviceName string) error {
	cmd := exec.Command("systemctl", "--no-pager", "status", serviceName)
	cmd.Stderr = log.Writer()
	cmd.Stdout = log.Writer()
	slog.Debug(cmd.String())

	var exitErr *exec.ExitError
	err := cmd.Run()
	if err != nil && !errors.As(err, &exitErr) {
		return errors.WithMessage(err, "service status command failed")
	}
	if exitErr != nil {
		switch exitErr.ExitCode() {
		case systemDStatusInactive:
			return ErrInactiveService
		case systemDStatusNotFound:
			return NewNotFoundError(serviceName)
		default:
			return errors.Wrapf(err, "service status command failed with exit code %d", exitErr.ExitCode())
		}
	}

	return nil
}

type Basic struct{}

func NewBasic() *Basic {
	return &Basic{}
}

func (s *Basic) run(serviceName, action string) error {
	cmd := exec.Command("service", serviceName, action)
	cmd.Stderr = log.Writer()
	cmd.Stdout = log.Writer()
	slog.Debug(cmd.String())

	return cmd.Run()
}

func (s *Basic) Start(_ context.Context, serviceName string) error {
	return s.run(serviceName, "start")
}

func (s *Basic) Stop(_ context.Context, serviceName string) error {
	return s.run(serviceName, "stop")
}

func (s *Basic) Restart(_ context.Context, serviceName string) error {
	return s.run(serviceName, "restart")
}

func (s *Basic) Status(_ context.Context, serviceName string) error {
	return s.run(serviceName, "status")
}

func (s *Basic) DaemonReload(_ context.Context) error {
	// service(8) has no unit cache to refresh.
	return nil
}

func (s *Basic) Enable(_ context.Context, serviceName string) error {
	cmd := exec.Command("update-rc.d", serviceName, "defaults")
	cmd.Stderr = log.Writer()
	cmd.Stdout = log.Writer()
	slog.Debug(cmd.String())

	return cmd.Run()
}
