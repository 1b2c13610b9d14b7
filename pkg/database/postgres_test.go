package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/asrama-api/pkg/config"
)

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	dsn := PostgresDSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "asrama",
		Password: "p@ss/word",
		Name:     "asrama",
		SSLMode:  "disable",
	})

	assert.Equal(t, "postgres://asrama:p%40ss%2Fword@db:5432/asrama?connect_timeout=10&sslmode=disable", dsn)
}
