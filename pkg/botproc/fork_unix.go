//go:build linux || darwin

package botproc

import (
	"log"
	"os"
	"syscall"

	"github.com/pkg/errors"
)

// StartFork launches the bot detached from the terminal. Used when no init
// system is available to supervise it.
func StartFork(exePath string, args []string, workDir string) error {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return errors.WithMessage(err, "failed to open /dev/null")
	}
	defer func(devNull *os.File) {
		err := devNull.Close()
		if err != nil {
			log.Println("Failed to close /dev/null:", err)
		}
	}(devNull)

	attr := os.ProcAttr{
		Dir: workDir,
		Env: os.Environ(),
		Sys: &syscall.SysProcAttr{
			Setsid: true, // Detach from the controlling terminal.
		},
		Files: []*os.File{devNull, devNull, devNull},
	}
	p, err := os.StartProcess(exePath, append([]string{exePath}, args...), &attr)
	if err != nil {
		return errors.WithMessage(err, "failed to start process")
	}

	log.Println("Process started with pid", p.Pid)

	// Reap the child when it terminates so no zombies accumulate.
	go func() {
		state, waitErr := p.Wait()
		if waitErr != nil {
			log.Printf("Error waiting for process (pid %d): %v\n", p.Pid, waitErr)

			return
		}
		log.Printf("Process (pid %d) exited with status: %s\n", p.Pid, state.String())
	}()

	return nil
}
