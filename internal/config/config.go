package config

import (
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"

	"github.com/spauka/secretsanta/internal/paths"
)

// Config holds everything the bot needs at runtime. The file carries secrets
// (app password, console secret hash), so it is written with mode 0600.
type Config struct {
	Database Database `yaml:"database"`
	Bot      Bot      `yaml:"botframework"`
	Server   Server   `yaml:"server"`
	Console  Console  `yaml:"console"`
	Messages Messages `yaml:"messages"`
}

type Database struct {
	// DSN selects the driver by prefix: sqlite:<path>, mysql:<dsn> or
	// postgres:<dsn>.
	DSN string `yaml:"dsn"`
}

type Bot struct {
	AppID       string `yaml:"app_id"`
	AppPassword string `yaml:"app_password"`
	Tenant      string `yaml:"tenant,omitempty"`
}

type Server struct {
	SocketPath string `yaml:"socket_path"`
	// ListenAddr switches the server to TCP for local development.
	ListenAddr string `yaml:"listen_addr,omitempty"`
	// SocketMode is octal, e.g. "0770".
	SocketMode     string        `yaml:"socket_mode"`
	PostStartDelay time.Duration `yaml:"post_start_delay"`
	// PostStartHook is an optional extra command run after the socket is
	// ready, in addition to the permission change.
	PostStartHook string `yaml:"post_start_hook,omitempty"`
	LogDir        string `yaml:"log_dir"`
}

// Mode parses the configured socket mode.
func (s Server) Mode() (os.FileMode, error) {
	mode, err := strconv.ParseUint(s.SocketMode, 8, 32)
	if err != nil {
		return 0, errors.WithMessagef(err, "invalid socket mode %q", s.SocketMode)
	}

	return os.FileMode(mode), nil
}

type Console struct {
	SecretHash string `yaml:"secret_hash,omitempty"`
}

type Messages struct {
	PartyDetails string `yaml:"party_details"`
	CardImageURL string `yaml:"card_image_url"`
}

func Default() Config {
	return Config{
		Database: Database{
			DSN: "sqlite:" + paths.DefaultDatabasePath,
		},
		Server: Server{
			SocketPath:     paths.DefaultSocketPath,
			SocketMode:     "0770",
			PostStartDelay: 1 * time.Second,
			LogDir:         paths.DefaultLogDir,
		},
		Messages: Messages{
			PartyDetails: "Gifts will be exchanged at the Christmas party.",
			CardImageURL: "https://secretsanta.spauka.se/images/210274.png",
		},
	}
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WithMessagef(err, "failed to read config %s", path)
	}

	cfg := Default()
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, errors.WithMessage(err, "failed to parse config")
	}

	return cfg, nil
}

func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithMessage(err, "failed to marshal config")
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		return errors.WithMessagef(err, "failed to write config %s", path)
	}

	// An existing file keeps its old mode on O_TRUNC, tighten it.
	return os.Chmod(path, 0600)
}
