// Package botproc locates and controls the bot process directly, for hosts
// where no init system manages it.
package botproc

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	InitUnknown = "unknown"
	InitSystemd = "systemd"
)

const defaultTerminateWaitTimeout = 30 * time.Second

type AlreadyRunningError struct {
	Pid int32
}

func NewAlreadyRunningError(pid int32) AlreadyRunningError {
	return AlreadyRunningError{Pid: pid}
}

func (e AlreadyRunningError) Error() string {
	return fmt.Sprintf("bot is already running with pid %d", e.Pid)
}

// DetectInit inspects pid 1 to decide whether systemd is in charge.
func DetectInit(ctx context.Context) (string, error) {
	result := InitUnknown

	p, err := process.NewProcessWithContext(ctx, 1)
	if err != nil {
		return result, errors.WithMessage(err, "failed to load process with pid 1")
	}

	exe, err := p.Exe()
	if err != nil {
		return result, errors.WithMessage(err, "failed to get executable path of the process")
	}

	originalExe, err := filepath.EvalSymlinks(exe)
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to evaluate symlink"))
	}

	filename := originalExe
	if filename == "" {
		filename = exe
	}

	if filepath.Base(filename) == "systemd" {
		result = InitSystemd
	}

	return result, nil
}

// FindProcess returns the running bot process, or nil when none is found.
func FindProcess(ctx context.Context, processName string) (*process.Process, error) {
	processes, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load all processes")
	}

	for _, p := range processes {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}

		if name == processName {
			return p, nil
		}
	}

	return nil, nil //nolint:nilnil
}

// TerminateAndKill asks the process to stop and escalates to SIGKILL after
// a grace period.
func TerminateAndKill(ctx context.Context, p *process.Process) error {
	processName, err := p.Name()
	if err != nil {
		return errors.WithMessage(err, "failed to get process name")
	}

	err = p.TerminateWithContext(ctx)
	if err != nil {
		return errors.WithMessagef(err, "failed to terminate %s process", processName)
	}

	log.Printf("Waiting for %s process to terminate\n", processName)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, defaultTerminateWaitTimeout)
	defer cancel()
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for stop := false; !stop; {
		if isRunning, _ := p.IsRunning(); !isRunning {
			return nil
		}

		select {
		case <-ctxWithTimeout.Done():
			stop = true
		case <-ticker.C:
			log.Printf("Process %s still running\n", processName)
		}
	}

	err = p.KillWithContext(ctx)
	if err != nil {
		return errors.WithMessagef(err, "failed to kill %s process", processName)
	}

	return nil
}
