package paths

// Version is set at build time via -ldflags.
var Version = "dev"

const ServiceName = "secretsantabot"

const DefaultConfigDir = "/etc/secretsantabot"
const DefaultConfigFilePath = "/etc/secretsantabot/secretsanta.yaml"
const DefaultDataPath = "/var/lib/secretsantabot"
const DefaultDatabasePath = "/var/lib/secretsantabot/secretsanta.db"
const DefaultBinaryPath = "/usr/bin/secretsanta"

const DefaultRuntimeDir = "/run/secretsantabot"
const DefaultSocketPath = "/run/secretsantabot/bot.sock"

const DefaultLogDir = "/var/log/secretsantabot"
const DefaultOutputLogPath = "/var/log/secretsantabot/output.log"
const DefaultErrorLogPath = "/var/log/secretsantabot/error.log"

const SystemdUnitPath = "/etc/systemd/system/secretsantabot.service"

const ReleasesAPI = "https://api.github.com/repos/spauka/secretsanta/releases"
