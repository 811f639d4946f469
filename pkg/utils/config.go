package utils

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Session  SessionConfig
	Exam     ExamConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type SessionConfig struct {
	ExpiryHours int
}

// ExamConfig carries the process-wide reservation rules. MaxParticipants is
// the confirmed-seat ceiling per schedule; ReservationDeadlineDays is how many
// days before start_time reservations close. Both are fixed at process start
// and injected into the capacity ledger, never read from globals.
type ExamConfig struct {
	MaxParticipants         int
	ReservationDeadlineDays int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("SESSION_EXPIRY_HOURS", 24)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("MAX_PARTICIPANTS", 50000)
	viper.SetDefault("RESERVATION_DEADLINE_DAYS", 3)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Session: SessionConfig{
			ExpiryHours: viper.GetInt("SESSION_EXPIRY_HOURS"),
		},
		Exam: ExamConfig{
			MaxParticipants:         viper.GetInt("MAX_PARTICIPANTS"),
			ReservationDeadlineDays: viper.GetInt("RESERVATION_DEADLINE_DAYS"),
		},
	}

	if config.Exam.MaxParticipants <= 0 {
		return nil, fmt.Errorf("MAX_PARTICIPANTS must be positive, got %d", config.Exam.MaxParticipants)
	}
	if config.Exam.ReservationDeadlineDays < 0 {
		return nil, fmt.Errorf("RESERVATION_DEADLINE_DAYS must not be negative, got %d", config.Exam.ReservationDeadlineDays)
	}

	return config, nil
}
