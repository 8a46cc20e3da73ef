package config

import (
	"errors"
	"os"
	"strconv"
)

// Environment variable names, matching the deployed system's .env surface.
const (
	EnvCredentialsPath   = "FIREBASE_CREDENTIALS_PATH"
	EnvProjectID         = "FIREBASE_PROJECT_ID"
	EnvDatabase          = "FIRESTORE_DATABASE"
	EnvStateBackend      = "STATE_BACKEND"
	EnvTradingMode       = "TRADING_MODE"
	EnvDefaultExchange   = "DEFAULT_EXCHANGE"
	EnvSymbols           = "SYMBOLS"
	EnvQuantumAlgorithm  = "QUANTUM_ALGORITHM"
	EnvQuantumIterations = "QUANTUM_ITERATIONS"
	EnvRLEpochs          = "RL_EPOCHS"
	EnvPopulation        = "NEUROEVOLUTION_POPULATION"
	EnvMaxPositionSize   = "MAX_POSITION_SIZE"
	EnvStopLossPercent   = "STOP_LOSS_PERCENT"
	EnvTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID    = "TELEGRAM_CHAT_ID"
	EnvLogLevel          = "LOG_LEVEL"
	EnvHeartbeatInterval = "HEARTBEAT_INTERVAL"

	EnvPostgresHost     = "POSTGRES_HOST"
	EnvPostgresPort     = "POSTGRES_PORT"
	EnvPostgresName     = "POSTGRES_NAME"
	EnvPostgresUser     = "POSTGRES_USER"
	EnvPostgresPassword = "POSTGRES_PASSWORD"
	EnvPostgresSSLMode  = "POSTGRES_SSLMODE"
	EnvPostgresMaxConns = "POSTGRES_MAX_CONNS"
	EnvPostgresMinConns = "POSTGRES_MIN_CONNS"
	EnvSQLitePath       = "SQLITE_PATH"
)

// fillFromEnv fills unset fields from environment variables. Explicit
// overrides win: a field already set is never touched. Malformed values
// are reported per-field, all together.
//
// The returned set names every numeric field an environment variable
// supplied, so applyDefaults can tell an env-provided zero apart from an
// unset field: "MAX_POSITION_SIZE=0" must reach Validate as 0 and fail
// there, not be papered over by the default.
func (s *Settings) fillFromEnv() (map[string]bool, error) {
	set := make(map[string]bool)
	var errs []error

	fillString(&s.CredentialsPath, EnvCredentialsPath)
	fillString(&s.ProjectID, EnvProjectID)
	fillString(&s.Database, EnvDatabase)
	fillEnum((*string)(&s.StateBackend), EnvStateBackend)
	fillEnum((*string)(&s.TradingMode), EnvTradingMode)
	fillString(&s.DefaultExchange, EnvDefaultExchange)
	if len(s.Symbols) == 0 {
		if raw, ok := os.LookupEnv(EnvSymbols); ok {
			s.Symbols = ParseSymbols(raw)
		}
	}
	fillEnum((*string)(&s.QuantumAlgorithm), EnvQuantumAlgorithm)
	errs = append(errs,
		fillInt(&s.QuantumIterations, EnvQuantumIterations, "quantum_iterations", set),
		fillInt(&s.RLEpochs, EnvRLEpochs, "rl_epochs", set),
		fillInt(&s.NeuroevolutionPopulation, EnvPopulation, "neuroevolution_population", set),
		fillFloat(&s.MaxPositionSize, EnvMaxPositionSize, "max_position_size", set),
		fillFloat(&s.StopLossPercent, EnvStopLossPercent, "stop_loss_percent", set),
		fillInt(&s.HeartbeatInterval, EnvHeartbeatInterval, "heartbeat_interval", set),
	)
	fillString(&s.TelegramBotToken, EnvTelegramBotToken)
	fillString(&s.TelegramChatID, EnvTelegramChatID)
	fillString(&s.LogLevel, EnvLogLevel)

	fillString(&s.Postgres.Host, EnvPostgresHost)
	fillString(&s.Postgres.Name, EnvPostgresName)
	fillString(&s.Postgres.User, EnvPostgresUser)
	fillString(&s.Postgres.Password, EnvPostgresPassword)
	fillString(&s.Postgres.SSLMode, EnvPostgresSSLMode)
	errs = append(errs,
		fillInt(&s.Postgres.Port, EnvPostgresPort, "postgres.port", set),
		fillInt(&s.Postgres.MaxConns, EnvPostgresMaxConns, "postgres.max_conns", set),
		fillInt(&s.Postgres.MinConns, EnvPostgresMinConns, "postgres.min_conns", set),
	)
	fillString(&s.SQLitePath, EnvSQLitePath)

	return set, errors.Join(errs...)
}

func fillString(dst *string, env string) {
	if *dst != "" {
		return
	}
	if v, ok := os.LookupEnv(env); ok && v != "" {
		*dst = v
	}
}

// fillEnum fills a string-typed enumeration field. Membership in the
// enumerated set is checked later, by Validate.
func fillEnum(dst *string, env string) {
	fillString(dst, env)
}

func fillInt(dst *int, env, field string, set map[string]bool) error {
	if *dst != 0 {
		return nil
	}
	v, ok := os.LookupEnv(env)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return invalid(field, "must be an integer, got %q", v)
	}
	*dst = n
	set[field] = true
	return nil
}

func fillFloat(dst *float64, env, field string, set map[string]bool) error {
	if *dst != 0 {
		return nil
	}
	v, ok := os.LookupEnv(env)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return invalid(field, "must be a number, got %q", v)
	}
	*dst = f
	set[field] = true
	return nil
}
