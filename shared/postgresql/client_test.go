package postgresql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db",
		Port:     5432,
		User:     "booking",
		Password: "secret",
		Database: "booking_db",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=db port=5432 user=booking password=secret dbname=booking_db sslmode=disable application_name=interpreter-booking",
		cfg.DSN(),
	)

	cfg.ApplicationName = "booking-worker-service"
	assert.Contains(t, cfg.DSN(), "application_name=booking-worker-service")
}
