package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/enrollment-dashboard-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "report",
		Password: "secret",
		Name:     "enrollment_dashboard",
		SSLMode:  "disable",
	})
	assert.Equal(t, "host=db port=5433 user=report password=secret dbname=enrollment_dashboard sslmode=disable", dsn)
}
