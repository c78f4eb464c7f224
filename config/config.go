/*
Package config loads environment-driven settings.

A .env file is honoured when present (godotenv); real environment
variables win over it. The venue operates in one fixed named timezone -
every shift, session, and booking clock time is entered in that zone.

VARIABLES:
  PORT                        HTTP port (default 8080)
  DB_PATH                     SQLite path, ":memory:" allowed (default boh.db)
  VENUE_TIMEZONE              IANA zone name (default Europe/London)
  BOOKING_DURATION_MINUTES    Regular booking default (default 90)
  FIXED_MENU_DURATION_MINUTES Fixed-menu seating default (default 120)
  MIN_BOOKING_MINUTES         Floor for derived windows (default 30)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/tably/boh-engine/tables"
)

type Config struct {
	Port   int
	DBPath string

	VenueZone *time.Location
	Durations tables.DurationPolicy
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	zoneName := getEnv("VENUE_TIMEZONE", "Europe/London")
	zone, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid VENUE_TIMEZONE %q: %w", zoneName, err)
	}

	return &Config{
		Port:      getEnvInt("PORT", 8080),
		DBPath:    getEnv("DB_PATH", "boh.db"),
		VenueZone: zone,
		Durations: tables.DurationPolicy{
			DefaultMinutes: getEnvInt("BOOKING_DURATION_MINUTES", 90),
			ByCategory: map[string]int{
				tables.CategoryRegular:   getEnvInt("BOOKING_DURATION_MINUTES", 90),
				tables.CategoryFixedMenu: getEnvInt("FIXED_MENU_DURATION_MINUTES", 120),
			},
			MinimumMinutes: getEnvInt("MIN_BOOKING_MINUTES", 30),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
