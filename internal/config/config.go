package config

import (
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TradingMode selects how orders are executed.
type TradingMode string

const (
	ModePaper    TradingMode = "paper"
	ModeLive     TradingMode = "live"
	ModeBacktest TradingMode = "backtest"
)

// QuantumAlgorithm selects the quantum-inspired optimizer.
type QuantumAlgorithm string

const (
	AlgoQAOA             QuantumAlgorithm = "qaoa"
	AlgoVQE              QuantumAlgorithm = "vqe"
	AlgoQuantumAnnealing QuantumAlgorithm = "quantum_annealing"
)

// Backend selects the document store implementation.
type Backend string

const (
	BackendFirestore Backend = "firestore"
	BackendPostgres  Backend = "postgres"
	BackendSQLite    Backend = "sqlite"
	BackendMemory    Backend = "memory"
)

// SymbolList accepts either a native YAML sequence or a single
// comma-delimited string, split and trimmed element-wise.
type SymbolList []string

func (s *SymbolList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var raw string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*s = ParseSymbols(raw)
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

// ParseSymbols splits a comma-delimited symbol string, trimming
// surrounding whitespace from each element and dropping empty ones.
func ParseSymbols(raw string) SymbolList {
	parts := strings.Split(raw, ",")
	out := make(SymbolList, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Settings is the validated runtime configuration. Construct it through
// New, FromEnv, or Load; a Settings value that reaches callers has passed
// validation in full and is treated as immutable.
type Settings struct {
	// Document store
	CredentialsPath string  `yaml:"credentials_path"` // service-account file; never logged
	ProjectID       string  `yaml:"project_id"`       // empty: detect from credentials
	Database        string  `yaml:"database"`         // "(default)" addresses the default database
	StateBackend    Backend `yaml:"state_backend"`

	// Trading
	TradingMode     TradingMode `yaml:"trading_mode"`
	DefaultExchange string      `yaml:"default_exchange"`
	Symbols         SymbolList  `yaml:"symbols"`

	// Quantum optimizer
	QuantumAlgorithm  QuantumAlgorithm `yaml:"quantum_algorithm"`
	QuantumIterations int              `yaml:"quantum_iterations"`

	// Reinforcement learning
	RLEpochs                 int `yaml:"rl_epochs"`
	NeuroevolutionPopulation int `yaml:"neuroevolution_population"`

	// Risk management
	MaxPositionSize float64 `yaml:"max_position_size"`
	StopLossPercent float64 `yaml:"stop_loss_percent"`

	// Notifications (optional)
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`

	// System
	LogLevel          string `yaml:"log_level"`
	HeartbeatInterval int    `yaml:"heartbeat_interval"` // seconds

	// Backend-specific
	Postgres   DBConfig `yaml:"postgres"`
	SQLitePath string   `yaml:"sqlite_path"`
}

// DBConfig holds the Postgres backend connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// New builds Settings from explicit overrides, filling gaps from the
// environment and then from declared defaults, and validates the result.
// No partially-valid Settings value is ever returned.
func New(overrides Settings) (*Settings, error) {
	s := overrides
	envSet, err := s.fillFromEnv()
	if err != nil {
		return nil, err
	}
	s.applyDefaults(envSet)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// FromEnv builds Settings from environment variables and defaults only.
func FromEnv() (*Settings, error) {
	return New(Settings{})
}

// HeartbeatPeriod returns the heartbeat interval as a duration.
func (s *Settings) HeartbeatPeriod() time.Duration {
	return time.Duration(s.HeartbeatInterval) * time.Second
}

// SlogLevel maps the configured log level onto a slog level.
func (s *Settings) SlogLevel() slog.Level {
	switch strings.ToUpper(s.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
