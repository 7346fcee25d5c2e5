package persistence

import (
	"net/url"
	"testing"

	"social-publisher/infrastructure/configuration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name    string
		cfg     configuration.Db
		sslmode string
		user    string
	}{
		{
			name:    "local without password",
			cfg:     configuration.Db{Name: "social_publisher", Host: "localhost", Port: "5432", User: "postgres"},
			sslmode: "disable",
			user:    "postgres",
		},
		{
			name:    "remote requires tls",
			cfg:     configuration.Db{Name: "sp", Host: "db.internal", Port: "5432", User: "app", Password: "p@ss"},
			sslmode: "require",
			user:    "app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(postgresDSN(tt.cfg))
			require.NoError(t, err)
			assert.Equal(t, "postgres", u.Scheme)
			assert.Equal(t, tt.cfg.Host+":"+tt.cfg.Port, u.Host)
			assert.Equal(t, "/"+tt.cfg.Name, u.Path)
			assert.Equal(t, tt.sslmode, u.Query().Get("sslmode"))
			assert.Equal(t, tt.user, u.User.Username())
			if tt.cfg.Password != "" {
				pw, _ := u.User.Password()
				assert.Equal(t, tt.cfg.Password, pw)
			}
		})
	}
}

func TestMSSQLDSN(t *testing.T) {
	u, err := url.Parse(mssqlDSN(configuration.Db{Name: "sp", Host: "localhost", Port: "1433", User: "sa", Password: "pw"}))
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "sp", u.Query().Get("database"))
	assert.Equal(t, "true", u.Query().Get("encrypt"))
	assert.Equal(t, "true", u.Query().Get("TrustServerCertificate"))

	u, err = url.Parse(mssqlDSN(configuration.Db{Name: "sp", Host: "sp.database.windows.net", Port: "1433"}))
	require.NoError(t, err)
	assert.Empty(t, u.Query().Get("TrustServerCertificate"))
}
