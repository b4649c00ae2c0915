package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-dismissal-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "office",
		Password: "secret",
		Name:     "school_dismissal",
		SSLMode:  "disable",
	})

	assert.Contains(t, dsn, "host=db")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "dbname=school_dismissal")
	assert.Contains(t, dsn, "sslmode=disable")
}
