package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/vidaplena/adherence-backend/internal/dategrid"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Schedule ScheduleConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ScheduleConfig holds the dose grid and reminder planning parameters.
// TimeSlots is the fixed daily dose grid; every active medication is expected
// once per slot per day.
type ScheduleConfig struct {
	TimeSlots           []string
	HorizonDays         int
	MaxPendingReminders int
	MotivationalSlot    string
	Dimensions          []string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	// Bind specific environment variables
	bindEnvVars(v)

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	// Schedule defaults: three doses per day, 30-day reminder horizon,
	// motivational content stacked from 09:00.
	v.SetDefault("schedule.timeslots", []string{"06:00", "14:00", "22:00"})
	v.SetDefault("schedule.horizondays", 30)
	v.SetDefault("schedule.maxpendingreminders", 500)
	v.SetDefault("schedule.motivationalslot", "09:00")
	v.SetDefault("schedule.dimensions", []string{
		"Alimentacion", "ActividadFisica", "Estigma", "Farmaco",
	})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Schedule
	v.BindEnv("schedule.timeslots", "SCHEDULE_TIME_SLOTS")
	v.BindEnv("schedule.horizondays", "SCHEDULE_HORIZON_DAYS")
	v.BindEnv("schedule.maxpendingreminders", "SCHEDULE_MAX_PENDING_REMINDERS")
	v.BindEnv("schedule.motivationalslot", "SCHEDULE_MOTIVATIONAL_SLOT")
	v.BindEnv("schedule.dimensions", "SCHEDULE_DIMENSIONS")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate required fields
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if _, err := dategrid.ParseGrid(c.Schedule.TimeSlots); err != nil {
		return fmt.Errorf("schedule.timeslots: %w", err)
	}

	if _, err := dategrid.ParseSlot(c.Schedule.MotivationalSlot); err != nil {
		return fmt.Errorf("schedule.motivationalslot: %w", err)
	}

	if c.Schedule.HorizonDays <= 0 {
		return fmt.Errorf("schedule.horizondays must be positive")
	}

	if c.Schedule.MaxPendingReminders <= 0 {
		return fmt.Errorf("schedule.maxpendingreminders must be positive")
	}

	if len(c.Schedule.Dimensions) == 0 {
		return fmt.Errorf("schedule.dimensions must not be empty")
	}

	return nil
}

// Grid parses the configured dose grid. Validate must have passed.
func (c *ScheduleConfig) Grid() dategrid.Grid {
	grid, err := dategrid.ParseGrid(c.TimeSlots)
	if err != nil {
		panic(fmt.Sprintf("unvalidated schedule config: %v", err))
	}
	return grid
}

// MotivationalBase parses the configured motivational base slot.
func (c *ScheduleConfig) MotivationalBase() dategrid.TimeSlot {
	slot, err := dategrid.ParseSlot(c.MotivationalSlot)
	if err != nil {
		panic(fmt.Sprintf("unvalidated schedule config: %v", err))
	}
	return slot
}
