package ui

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/pkg/errors"

	contextInternal "github.com/spauka/secretsanta/internal/context"
	"github.com/spauka/secretsanta/internal/paths"
	"github.com/spauka/secretsanta/internal/store"
	"github.com/spauka/secretsanta/pkg/santa"
	"github.com/spauka/secretsanta/pkg/service"
)

const (
	serviceStatusActive   = "active"
	serviceStatusInactive = "inactive"
	serviceStatusNotFound = "not found"
)

func (c *console) cmdHandle(ctx context.Context, w io.Writer, m message) error {
	cmd := strings.Split(m.Value, " ")
	if len(cmd) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var args []string
	if len(cmd) > 1 {
		args = cmd[1:]
	}

	switch cmd[0] {
	case "node-info":
		return nodeInfo(ctx, w)
	case "service-status":
		return serviceStatus(ctx, w)
	case "service-command":
		duplicateLogWriter(ctx, w)

		return serviceCommand(ctx, w, args)
	case "exchange-list":
		return c.exchangeList(ctx, w)
	}

	return errors.New("unknown command")
}

func duplicateLogWriter(ctx context.Context, w io.Writer) {
	oldLogWriter := log.Writer()
	mw := io.MultiWriter(w, oldLogWriter)
	log.SetOutput(mw)

	go func() {
		<-ctx.Done()
		log.SetOutput(oldLogWriter)
	}()
}

//nolint:unparam
func nodeInfo(ctx context.Context, w io.Writer) error {
	info := contextInternal.OSInfoFromContext(ctx)
	_, _ = w.Write([]byte(info.String()))
	_, _ = w.Write([]byte("\nVersion: " + paths.Version))

	return nil
}

func serviceStatus(ctx context.Context, w io.Writer) error {
	var errNotFound *service.NotFoundError
	err := service.Status(ctx, paths.ServiceName)
	if err != nil && errors.Is(err, service.ErrInactiveService) {
		_, _ = w.Write([]byte(serviceStatusInactive))

		return nil
	}
	if err != nil && !errors.As(err, &errNotFound) {
		return errors.WithMessage(err, "failed to get service status")
	}
	if errNotFound != nil {
		_, _ = w.Write([]byte(serviceStatusNotFound))

		//nolint:nilerr
		return nil
	}

	_, _ = w.Write([]byte(serviceStatusActive))

	return nil
}

func serviceCommand(ctx context.Context, w io.Writer, args []string) error {
	if len(args) == 0 {
		return errors.New("no service command provided")
	}

	var err error
	switch args[0] {
	case "start":
		err = service.Start(ctx, paths.ServiceName)
	case "stop":
		err = service.Stop(ctx, paths.ServiceName)
	case "restart":
		err = service.Restart(ctx, paths.ServiceName)
	default:
		return errors.Errorf("unknown service command %q", args[0])
	}
	if err != nil {
		return err
	}

	_, _ = w.Write([]byte("ok"))

	return nil
}

func (c *console) exchangeList(ctx context.Context, w io.Writer) error {
	st, err := store.Open(ctx, c.cfg.Database.DSN)
	if err != nil {
		return errors.WithMessage(err, "failed to open database")
	}
	defer func() {
		_ = st.Close()
	}()

	exchanges, err := st.Exchanges(ctx)
	if err != nil {
		return err
	}
	if len(exchanges) == 0 {
		_, _ = w.Write([]byte("no exchanges"))

		return nil
	}

	for _, ex := range exchanges {
		participants, err := st.Participants(ctx, ex.ID)
		if err != nil {
			return err
		}

		drawn := len(santa.NewRing(participants).Members())
		seen := 0
		for _, p := range participants {
			if p.Seen != nil {
				seen++
			}
		}

		line := fmt.Sprintf("%d: %s, %d participants, %d drawn, %d revealed",
			ex.ID, ex.Name, len(participants), drawn, seen)
		_, _ = w.Write([]byte(line + "\n"))
	}

	return nil
}
