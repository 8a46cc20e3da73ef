package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New(Settings{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if cfg.HeartbeatInterval != 60 {
		t.Errorf("HeartbeatInterval = %d, want 60", cfg.HeartbeatInterval)
	}
	if cfg.TradingMode != ModePaper {
		t.Errorf("TradingMode = %q, want %q", cfg.TradingMode, ModePaper)
	}
	if cfg.QuantumAlgorithm != AlgoQAOA {
		t.Errorf("QuantumAlgorithm = %q, want %q", cfg.QuantumAlgorithm, AlgoQAOA)
	}
	if cfg.Database != "(default)" {
		t.Errorf("Database = %q, want %q", cfg.Database, "(default)")
	}
	if cfg.StateBackend != BackendFirestore {
		t.Errorf("StateBackend = %q, want %q", cfg.StateBackend, BackendFirestore)
	}
	if want := DefaultSymbols(); !reflect.DeepEqual(cfg.Symbols, want) {
		t.Errorf("Symbols = %v, want %v", cfg.Symbols, want)
	}
	if cfg.MaxPositionSize != 0.1 {
		t.Errorf("MaxPositionSize = %g, want 0.1", cfg.MaxPositionSize)
	}
}

func TestNewOverridesWin(t *testing.T) {
	t.Setenv(EnvQuantumIterations, "5000")
	t.Setenv(EnvTradingMode, "live")

	cfg, err := New(Settings{
		TradingMode:       ModeBacktest,
		QuantumIterations: 200,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if cfg.TradingMode != ModeBacktest {
		t.Errorf("TradingMode = %q, want override %q", cfg.TradingMode, ModeBacktest)
	}
	if cfg.QuantumIterations != 200 {
		t.Errorf("QuantumIterations = %d, want override 200", cfg.QuantumIterations)
	}
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv(EnvTradingMode, "live")
	t.Setenv(EnvSymbols, "BTC/USDT, ETH/USDT,SOL/USDT")
	t.Setenv(EnvMaxPositionSize, "0.25")
	t.Setenv(EnvHeartbeatInterval, "30")

	cfg, err := New(Settings{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if cfg.TradingMode != ModeLive {
		t.Errorf("TradingMode = %q, want %q", cfg.TradingMode, ModeLive)
	}
	want := SymbolList{"BTC/USDT", "ETH/USDT", "SOL/USDT"}
	if !reflect.DeepEqual(cfg.Symbols, want) {
		t.Errorf("Symbols = %v, want %v", cfg.Symbols, want)
	}
	if cfg.MaxPositionSize != 0.25 {
		t.Errorf("MaxPositionSize = %g, want 0.25", cfg.MaxPositionSize)
	}
	if cfg.HeartbeatInterval != 30 {
		t.Errorf("HeartbeatInterval = %d, want 30", cfg.HeartbeatInterval)
	}
}

func TestNewMalformedEnv(t *testing.T) {
	t.Setenv(EnvQuantumIterations, "not-a-number")

	_, err := New(Settings{})
	if err == nil {
		t.Fatal("New expected error for malformed env value, got nil")
	}
	if !strings.Contains(err.Error(), "quantum_iterations") {
		t.Errorf("error should name the field, got %q", err.Error())
	}
}

func TestNewRejectsZeroEnvValues(t *testing.T) {
	// A literal "0" from the environment is an explicit value; for
	// bounded fields it must fail validation, not fall back to the
	// default.
	tests := []struct {
		name      string
		env       string
		wantField string
	}{
		{name: "max position size", env: EnvMaxPositionSize, wantField: "max_position_size"},
		{name: "quantum iterations", env: EnvQuantumIterations, wantField: "quantum_iterations"},
		{name: "heartbeat interval", env: EnvHeartbeatInterval, wantField: "heartbeat_interval"},
		{name: "rl epochs", env: EnvRLEpochs, wantField: "rl_epochs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, "0")

			_, err := New(Settings{})
			if err == nil {
				t.Fatalf("New expected error naming %q for %s=0, got nil", tt.wantField, tt.env)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("New error = %q, want it to name %q", err.Error(), tt.wantField)
			}
		})
	}
}

func TestNewKeepsValidZeroEnvValue(t *testing.T) {
	// min_conns = 0 is within bounds; the default must not replace it.
	t.Setenv(EnvStateBackend, "postgres")
	t.Setenv(EnvPostgresHost, "localhost")
	t.Setenv(EnvPostgresName, "db")
	t.Setenv(EnvPostgresUser, "u")
	t.Setenv(EnvPostgresPassword, "p")
	t.Setenv(EnvPostgresMinConns, "0")

	cfg, err := New(Settings{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if cfg.Postgres.MinConns != 0 {
		t.Errorf("MinConns = %d, want env-provided 0 kept", cfg.Postgres.MinConns)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Settings)
		wantField string
	}{
		{
			name:      "trading mode outside enum",
			mutate:    func(s *Settings) { s.TradingMode = "turbo" },
			wantField: "trading_mode",
		},
		{
			name:      "quantum algorithm outside enum",
			mutate:    func(s *Settings) { s.QuantumAlgorithm = "grover" },
			wantField: "quantum_algorithm",
		},
		{
			name:      "iterations below bound",
			mutate:    func(s *Settings) { s.QuantumIterations = 99 },
			wantField: "quantum_iterations",
		},
		{
			name:      "iterations above bound",
			mutate:    func(s *Settings) { s.QuantumIterations = 10001 },
			wantField: "quantum_iterations",
		},
		{
			name:      "epochs below bound",
			mutate:    func(s *Settings) { s.RLEpochs = 999 },
			wantField: "rl_epochs",
		},
		{
			name:      "population above bound",
			mutate:    func(s *Settings) { s.NeuroevolutionPopulation = 501 },
			wantField: "neuroevolution_population",
		},
		{
			name:      "position size above bound",
			mutate:    func(s *Settings) { s.MaxPositionSize = 0.6 },
			wantField: "max_position_size",
		},
		{
			name:      "stop loss below bound",
			mutate:    func(s *Settings) { s.StopLossPercent = 0.001 },
			wantField: "stop_loss_percent",
		},
		{
			name:      "unknown backend",
			mutate:    func(s *Settings) { s.StateBackend = "dynamo" },
			wantField: "state_backend",
		},
		{
			name:      "unknown log level",
			mutate:    func(s *Settings) { s.LogLevel = "TRACE" },
			wantField: "log_level",
		},
		{
			name:      "heartbeat interval below bound",
			mutate:    func(s *Settings) { s.HeartbeatInterval = -5 },
			wantField: "heartbeat_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := s.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error naming %q, got nil", tt.wantField)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("Validate() error = %q, want it to name %q", err.Error(), tt.wantField)
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Validate() error is not a *ValidationError: %v", err)
			}
		})
	}
}

func TestValidateReportsAllFields(t *testing.T) {
	s := valid()
	s.QuantumIterations = 1
	s.MaxPositionSize = 0.9

	err := s.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	for _, field := range []string{"quantum_iterations", "max_position_size"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Validate() error = %q, want it to name %q", err.Error(), field)
		}
	}
}

func TestValidatePostgresBackend(t *testing.T) {
	s := valid()
	s.StateBackend = BackendPostgres
	if err := s.Validate(); err == nil || !strings.Contains(err.Error(), "postgres.host") {
		t.Errorf("Validate() = %v, want postgres.host error", err)
	}

	s.Postgres = DBConfig{Host: "localhost", Port: 5432, Name: "db", User: "u", Password: "p", MaxConns: 10, MinConns: 2}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}

	s.Postgres.MinConns = 20
	if err := s.Validate(); err == nil || !strings.Contains(err.Error(), "min_conns") {
		t.Errorf("Validate() = %v, want min_conns error", err)
	}
}

func TestParseSymbols(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want SymbolList
	}{
		{
			name: "spaces around elements",
			raw:  "BTC/USDT, ETH/USDT,SOL/USDT",
			want: SymbolList{"BTC/USDT", "ETH/USDT", "SOL/USDT"},
		},
		{
			name: "single symbol",
			raw:  "BTC/USDT",
			want: SymbolList{"BTC/USDT"},
		},
		{
			name: "empty elements dropped",
			raw:  "BTC/USDT,, ETH/USDT,",
			want: SymbolList{"BTC/USDT", "ETH/USDT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSymbols(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSymbols(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	yaml := `
trading_mode: backtest
state_backend: sqlite
symbols:
  - BTC/USDT
  - ETH/USDT
quantum_iterations: 2500
sqlite_path: /tmp/test-state.db
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TradingMode != ModeBacktest {
		t.Errorf("TradingMode = %q, want %q", cfg.TradingMode, ModeBacktest)
	}
	if cfg.StateBackend != BackendSQLite {
		t.Errorf("StateBackend = %q, want %q", cfg.StateBackend, BackendSQLite)
	}
	if cfg.QuantumIterations != 2500 {
		t.Errorf("QuantumIterations = %d, want 2500", cfg.QuantumIterations)
	}
	// Defaults still fill the gaps.
	if cfg.HeartbeatInterval != 60 {
		t.Errorf("HeartbeatInterval = %d, want default 60", cfg.HeartbeatInterval)
	}
}

func TestLoadSymbolsAsDelimitedString(t *testing.T) {
	path := writeTempFile(t, `symbols: "BTC/USDT, ETH/USDT"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := SymbolList{"BTC/USDT", "ETH/USDT"}
	if !reflect.DeepEqual(cfg.Symbols, want) {
		t.Errorf("Symbols = %v, want %v", cfg.Symbols, want)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_CREDS_PATH", "/etc/acqdte/creds.json")

	path := writeTempFile(t, "credentials_path: ${TEST_CREDS_PATH}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CredentialsPath != "/etc/acqdte/creds.json" {
		t.Errorf("CredentialsPath = %q, want %q", cfg.CredentialsPath, "/etc/acqdte/creds.json")
	}
}

func TestLoadInvalidFailsConstruction(t *testing.T) {
	path := writeTempFile(t, "quantum_iterations: 50\n")

	cfg, err := Load(path)
	if err == nil {
		t.Fatal("Load expected validation error, got nil")
	}
	if cfg != nil {
		t.Error("Load returned a Settings value alongside an error")
	}
}

// valid returns a fully valid Settings value for mutation in tests.
func valid() Settings {
	s := Settings{}
	s.applyDefaults(nil)
	return s
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
