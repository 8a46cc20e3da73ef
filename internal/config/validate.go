package config

import (
	"errors"
	"fmt"
	"strings"
)

// Declared numeric bounds (inclusive).
const (
	MinQuantumIterations = 100
	MaxQuantumIterations = 10000
	MinRLEpochs          = 1000
	MinPopulation        = 10
	MaxPopulation        = 500
	MinPositionSize      = 0.01
	MaxPositionSize      = 0.5
	MinStopLoss          = 0.005
	MaxStopLoss          = 0.1
)

// ValidationError reports a single field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks every field against its declared bound or enumerated
// set. All violations are reported together; any violation means the
// Settings value must not be used.
func (s *Settings) Validate() error {
	var errs []error

	if s.CredentialsPath == "" {
		errs = append(errs, invalid("credentials_path", "is required"))
	}
	if s.Database == "" {
		errs = append(errs, invalid("database", "is required"))
	}

	switch s.StateBackend {
	case BackendFirestore, BackendMemory:
	case BackendPostgres:
		if err := s.Postgres.validate("postgres"); err != nil {
			errs = append(errs, err)
		}
	case BackendSQLite:
		if s.SQLitePath == "" {
			errs = append(errs, invalid("sqlite_path", "is required for the sqlite backend"))
		}
	default:
		errs = append(errs, invalid("state_backend", "must be one of firestore, postgres, sqlite, memory, got %q", s.StateBackend))
	}

	switch s.TradingMode {
	case ModePaper, ModeLive, ModeBacktest:
	default:
		errs = append(errs, invalid("trading_mode", "must be one of paper, live, backtest, got %q", s.TradingMode))
	}

	if s.DefaultExchange == "" {
		errs = append(errs, invalid("default_exchange", "is required"))
	}
	if len(s.Symbols) == 0 {
		errs = append(errs, invalid("symbols", "must contain at least one symbol"))
	}

	switch s.QuantumAlgorithm {
	case AlgoQAOA, AlgoVQE, AlgoQuantumAnnealing:
	default:
		errs = append(errs, invalid("quantum_algorithm", "must be one of qaoa, vqe, quantum_annealing, got %q", s.QuantumAlgorithm))
	}

	if s.QuantumIterations < MinQuantumIterations || s.QuantumIterations > MaxQuantumIterations {
		errs = append(errs, invalid("quantum_iterations", "must be between %d and %d, got %d", MinQuantumIterations, MaxQuantumIterations, s.QuantumIterations))
	}
	if s.RLEpochs < MinRLEpochs {
		errs = append(errs, invalid("rl_epochs", "must be >= %d, got %d", MinRLEpochs, s.RLEpochs))
	}
	if s.NeuroevolutionPopulation < MinPopulation || s.NeuroevolutionPopulation > MaxPopulation {
		errs = append(errs, invalid("neuroevolution_population", "must be between %d and %d, got %d", MinPopulation, MaxPopulation, s.NeuroevolutionPopulation))
	}
	if s.MaxPositionSize < MinPositionSize || s.MaxPositionSize > MaxPositionSize {
		errs = append(errs, invalid("max_position_size", "must be between %g and %g, got %g", MinPositionSize, MaxPositionSize, s.MaxPositionSize))
	}
	if s.StopLossPercent < MinStopLoss || s.StopLossPercent > MaxStopLoss {
		errs = append(errs, invalid("stop_loss_percent", "must be between %g and %g, got %g", MinStopLoss, MaxStopLoss, s.StopLossPercent))
	}

	switch strings.ToUpper(s.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errs = append(errs, invalid("log_level", "must be one of DEBUG, INFO, WARN, ERROR, got %q", s.LogLevel))
	}

	if s.HeartbeatInterval < 1 {
		errs = append(errs, invalid("heartbeat_interval", "must be >= 1 second, got %d", s.HeartbeatInterval))
	}

	return errors.Join(errs...)
}

func (db *DBConfig) validate(prefix string) error {
	var errs []error
	if db.Host == "" {
		errs = append(errs, invalid(prefix+".host", "is required"))
	}
	if db.Port < 1 || db.Port > 65535 {
		errs = append(errs, invalid(prefix+".port", "must be between 1 and 65535, got %d", db.Port))
	}
	if db.Name == "" {
		errs = append(errs, invalid(prefix+".name", "is required"))
	}
	if db.User == "" {
		errs = append(errs, invalid(prefix+".user", "is required"))
	}
	if db.Password == "" {
		errs = append(errs, invalid(prefix+".password", "is required"))
	}
	if db.MaxConns < 1 {
		errs = append(errs, invalid(prefix+".max_conns", "must be >= 1, got %d", db.MaxConns))
	}
	if db.MinConns < 0 {
		errs = append(errs, invalid(prefix+".min_conns", "must be >= 0, got %d", db.MinConns))
	}
	if db.MinConns > db.MaxConns {
		errs = append(errs, invalid(prefix+".min_conns", "(%d) cannot exceed max_conns (%d)", db.MinConns, db.MaxConns))
	}
	return errors.Join(errs...)
}
