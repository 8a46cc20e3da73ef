package config

// Default values for optional configuration fields.
const (
	DefaultCredentialsPath   = "config/firebase-credentials.json"
	DefaultDatabase          = "(default)"
	DefaultBackend           = BackendFirestore
	DefaultTradingMode       = ModePaper
	DefaultExchange          = "binance"
	DefaultQuantumAlgorithm  = AlgoQAOA
	DefaultQuantumIterations = 1000
	DefaultRLEpochs          = 10000
	DefaultPopulation        = 50
	DefaultMaxPositionSize   = 0.1
	DefaultStopLossPercent   = 0.02
	DefaultLogLevel          = "INFO"
	DefaultHeartbeatInterval = 60 // seconds
	DefaultSQLitePath        = "data/tradestate.db"

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2
)

// DefaultSymbols is the symbol list used when none is configured.
func DefaultSymbols() SymbolList {
	return SymbolList{"BTC/USDT", "ETH/USDT", "SOL/USDT"}
}

// applyDefaults fills remaining zero-valued fields. envSet names the
// numeric fields the environment supplied; those keep their value even
// when it is zero, so an out-of-bounds zero reaches Validate instead of
// being silently replaced.
func (s *Settings) applyDefaults(envSet map[string]bool) {
	if s.CredentialsPath == "" {
		s.CredentialsPath = DefaultCredentialsPath
	}
	if s.Database == "" {
		s.Database = DefaultDatabase
	}
	if s.StateBackend == "" {
		s.StateBackend = DefaultBackend
	}
	if s.TradingMode == "" {
		s.TradingMode = DefaultTradingMode
	}
	if s.DefaultExchange == "" {
		s.DefaultExchange = DefaultExchange
	}
	if len(s.Symbols) == 0 {
		s.Symbols = DefaultSymbols()
	}
	if s.QuantumAlgorithm == "" {
		s.QuantumAlgorithm = DefaultQuantumAlgorithm
	}
	if s.QuantumIterations == 0 && !envSet["quantum_iterations"] {
		s.QuantumIterations = DefaultQuantumIterations
	}
	if s.RLEpochs == 0 && !envSet["rl_epochs"] {
		s.RLEpochs = DefaultRLEpochs
	}
	if s.NeuroevolutionPopulation == 0 && !envSet["neuroevolution_population"] {
		s.NeuroevolutionPopulation = DefaultPopulation
	}
	if s.MaxPositionSize == 0 && !envSet["max_position_size"] {
		s.MaxPositionSize = DefaultMaxPositionSize
	}
	if s.StopLossPercent == 0 && !envSet["stop_loss_percent"] {
		s.StopLossPercent = DefaultStopLossPercent
	}
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
	if s.HeartbeatInterval == 0 && !envSet["heartbeat_interval"] {
		s.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if s.SQLitePath == "" {
		s.SQLitePath = DefaultSQLitePath
	}

	applyDBDefaults(&s.Postgres, envSet)
}

func applyDBDefaults(db *DBConfig, envSet map[string]bool) {
	if db.Port == 0 && !envSet["postgres.port"] {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 && !envSet["postgres.max_conns"] {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 && !envSet["postgres.min_conns"] {
		db.MinConns = DefaultMinConns
	}
}
