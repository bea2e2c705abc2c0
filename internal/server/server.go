// Package server exposes the bot over HTTP: the Bot Framework posts every
// activity to /api/messages, usually through a reverse proxy talking to the
// unix socket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/spauka/secretsanta/internal/bot"
	"github.com/spauka/secretsanta/internal/config"
	"github.com/spauka/secretsanta/internal/connector"
	"github.com/spauka/secretsanta/internal/store"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	bot   *bot.Bot
	store *store.Store
	cfg   config.Server

	http *http.Server
}

func New(b *bot.Bot, st *store.Store, cfg config.Server) *Server {
	s := &Server{
		bot:   b,
		store: st,
		cfg:   cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Run serves until the context is cancelled, then shuts down gracefully and
// removes the socket.
func (s *Server) Run(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		return err
	}

	go s.afterStart(ctx)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.http.Serve(listener)
	}()

	select {
	case err = <-serveErr:
		return errors.WithMessage(err, "server stopped")
	case <-ctx.Done():
	}

	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = s.http.Shutdown(shutdownCtx)

	return multierr.Append(
		errors.WithMessage(err, "failed to shut down server"),
		s.cleanupSocket(),
	)
}

func (s *Server) listen() (net.Listener, error) {
	if s.cfg.ListenAddr != "" {
		listener, err := net.Listen("tcp", s.cfg.ListenAddr)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to listen on %s", s.cfg.ListenAddr)
		}
		log.Println("listening on", s.cfg.ListenAddr)

		return listener, nil
	}

	return s.listenUnix()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)

		return
	}

	err := s.store.Ping(r.Context())
	if err != nil {
		log.Println(errors.WithMessage(err, "health check failed"))
		w.WriteHeader(http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintln(w, "ok")
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)

		return
	}

	var activity connector.Activity
	err := json.NewDecoder(r.Body).Decode(&activity)
	if err != nil {
		log.Println(errors.WithMessage(err, "failed to decode activity"))
		w.WriteHeader(http.StatusBadRequest)

		return
	}

	err = s.dispatch(r.Context(), activity)
	if err != nil {
		log.Println(errors.WithMessagef(err, "failed to handle %s activity", activity.Type))
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) dispatch(ctx context.Context, activity connector.Activity) error {
	switch activity.Type {
	case connector.ActivityTypeInstallationUpdate:
		if activity.ChannelID != connector.ChannelMSTeams {
			log.Printf("ignoring installation update from channel %q\n", activity.ChannelID)

			return nil
		}
		if activity.Action == "remove" {
			return s.bot.HandleInstallationRemove(ctx, activity)
		}

		return s.bot.HandleInstallationAdd(ctx, activity)
	case connector.ActivityTypeMessage, connector.ActivityTypeInvoke:
		// Only direct messages are commands. Channel chatter mentioning the
		// bot stays unanswered, anything else would spam the team in public.
		if activity.Type == connector.ActivityTypeMessage &&
			activity.Conversation.ConversationType != connector.ConversationPersonal {
			log.Printf("ignoring %s conversation message\n", activity.Conversation.ConversationType)

			return nil
		}

		turn, err := s.turnFor(ctx, activity)
		if err != nil {
			return err
		}

		if activity.Type == connector.ActivityTypeInvoke {
			return s.bot.HandleInvoke(ctx, turn)
		}

		err = s.bot.HandleMessage(ctx, turn)
		if err != nil {
			// The admin installed the bot, tell them something broke.
			s.bot.MessageCreator(ctx, turn, fmt.Sprintf("Something went wrong: %v", err))
		}

		return err
	default:
		log.Printf("ignoring %s activity\n", activity.Type)

		return nil
	}
}

// turnFor binds an activity to its team and the person speaking. People we
// have never seen before are added on the fly, so a new team member can talk
// to the bot without a reinstall.
func (s *Server) turnFor(ctx context.Context, activity connector.Activity) (*bot.Turn, error) {
	team, err := s.store.TeamByTenant(ctx, activity.TenantID())
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.Errorf("no team installed for tenant %q", activity.TenantID())
	}
	if err != nil {
		return nil, err
	}

	person, err := s.store.PersonByChatID(ctx, bot.ChatSource, activity.From.ID)
	if errors.Is(err, store.ErrNotFound) {
		var id int64
		id, err = s.store.UpsertPerson(ctx, store.Person{
			Name:       activity.From.Name,
			ChatSource: bot.ChatSource,
			ChatID:     activity.From.ID,
			TeamID:     team.TeamID,
		})
		if err == nil {
			person, err = s.store.PersonByID(ctx, id)
		}
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to resolve sender")
	}

	return &bot.Turn{Team: team, Person: person, Activity: activity}, nil
}
