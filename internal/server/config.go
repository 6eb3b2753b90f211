package server

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/feltd/feltd/internal/engine"
	"github.com/feltd/feltd/internal/loop"
)

// Config is the complete server configuration: network settings, engine
// timing and the tables opened at boot.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address      string `hcl:"address,optional"`
	Port         int    `hcl:"port,optional"`
	LogLevel     string `hcl:"log_level,optional"`
	EventLogPath string `hcl:"event_log_path,optional"`

	ActionTimeoutSeconds      int `hcl:"action_timeout_seconds,optional"`
	GameStartCountdownSeconds int `hcl:"game_start_countdown_seconds,optional"`
	MinPlayersToStart         int `hcl:"min_players_to_start,optional"`
	MaxPlayersPerTable        int `hcl:"max_players_per_table,optional"`
	StreetDealDelaySeconds    int `hcl:"street_deal_delay_seconds,optional"`
	NewHandDelaySeconds       int `hcl:"new_hand_delay_seconds,optional"`
}

// TableConfig defines one table opened at boot. Zero-valued buy-in
// bounds default to 20 and 200 big blinds.
type TableConfig struct {
	Name       string `hcl:"name,label"`
	SmallBlind int    `hcl:"small_blind"`
	BigBlind   int    `hcl:"big_blind"`
	Ante       int    `hcl:"ante,optional"`
	BuyInMin   int    `hcl:"buy_in_min,optional"`
	BuyInMax   int    `hcl:"buy_in_max,optional"`
}

// DefaultConfig returns the documented defaults with a single 5/10 table.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:                   "localhost",
			Port:                      8080,
			LogLevel:                  "info",
			ActionTimeoutSeconds:      15,
			GameStartCountdownSeconds: 10,
			MinPlayersToStart:         2,
			MaxPlayersPerTable:        9,
			StreetDealDelaySeconds:    3,
			NewHandDelaySeconds:       5,
		},
		Tables: []TableConfig{
			{Name: "main", SmallBlind: 5, BigBlind: 10},
		},
	}
}

// LoadConfig reads HCL configuration from filename (a missing file means
// defaults), fills in unset fields and applies environment overrides.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			parser := hclparse.NewParser()
			file, diags := parser.ParseHCLFile(filename)
			if diags.HasErrors() {
				return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
			}
			loaded := &Config{}
			if diags := gohcl.DecodeBody(file.Body, nil, loaded); diags.HasErrors() {
				return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
			}
			mergeDefaults(loaded)
			config = loaded
		}
	}

	applyEnv(config)

	// The ring is fixed at nine seats; the cap can only shrink it.
	if config.Server.MaxPlayersPerTable > engine.NumSeats {
		config.Server.MaxPlayersPerTable = engine.NumSeats
	}

	for i := range config.Tables {
		tc := &config.Tables[i]
		if tc.BigBlind <= 0 {
			return nil, fmt.Errorf("table %q: big_blind must be positive", tc.Name)
		}
		if tc.SmallBlind == 0 {
			tc.SmallBlind = tc.BigBlind / 2
		}
		if tc.BuyInMin == 0 {
			tc.BuyInMin = tc.BigBlind * 20
		}
		if tc.BuyInMax == 0 {
			tc.BuyInMax = tc.BigBlind * 200
		}
		if tc.BuyInMin > tc.BuyInMax {
			return nil, fmt.Errorf("table %q: buy_in_min exceeds buy_in_max", tc.Name)
		}
	}

	return config, nil
}

func mergeDefaults(c *Config) {
	def := DefaultConfig()
	s := &c.Server
	if s.Address == "" {
		s.Address = def.Server.Address
	}
	if s.Port == 0 {
		s.Port = def.Server.Port
	}
	if s.LogLevel == "" {
		s.LogLevel = def.Server.LogLevel
	}
	if s.ActionTimeoutSeconds == 0 {
		s.ActionTimeoutSeconds = def.Server.ActionTimeoutSeconds
	}
	if s.GameStartCountdownSeconds == 0 {
		s.GameStartCountdownSeconds = def.Server.GameStartCountdownSeconds
	}
	if s.MinPlayersToStart == 0 {
		s.MinPlayersToStart = def.Server.MinPlayersToStart
	}
	if s.MaxPlayersPerTable == 0 {
		s.MaxPlayersPerTable = def.Server.MaxPlayersPerTable
	}
	if s.StreetDealDelaySeconds == 0 {
		s.StreetDealDelaySeconds = def.Server.StreetDealDelaySeconds
	}
	if s.NewHandDelaySeconds == 0 {
		s.NewHandDelaySeconds = def.Server.NewHandDelaySeconds
	}
	if len(c.Tables) == 0 {
		c.Tables = def.Tables
	}
}

// applyEnv layers the documented environment variables over the file.
func applyEnv(c *Config) {
	s := &c.Server
	envInt("ACTION_TIMEOUT_SECONDS", &s.ActionTimeoutSeconds)
	envInt("GAME_START_COUNTDOWN_SECONDS", &s.GameStartCountdownSeconds)
	envInt("MIN_PLAYERS_TO_START", &s.MinPlayersToStart)
	envInt("MAX_PLAYERS_PER_TABLE", &s.MaxPlayersPerTable)
	envInt("STREET_DEAL_DELAY_SECONDS", &s.StreetDealDelaySeconds)
	envInt("NEW_HAND_DELAY_SECONDS", &s.NewHandDelaySeconds)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("EVENT_LOG_PATH"); v != "" {
		s.EventLogPath = v
	}
}

func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = n
	}
}

// ListenAddr returns the host:port the server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// LoopConfig converts the settings into per-table loop timing.
func (c *Config) LoopConfig() loop.Config {
	return loop.Config{
		ActionTimeout:      time.Duration(c.Server.ActionTimeoutSeconds) * time.Second,
		GameStartCountdown: time.Duration(c.Server.GameStartCountdownSeconds) * time.Second,
		StreetDealDelay:    time.Duration(c.Server.StreetDealDelaySeconds) * time.Second,
		NewHandDelay:       time.Duration(c.Server.NewHandDelaySeconds) * time.Second,
		MinPlayers:         c.Server.MinPlayersToStart,
	}
}
