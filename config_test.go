/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package migratekit

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/acronis/go-appkit/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	DB *Config `mapstructure:"db" json:"db" yaml:"db"`
}

func TestConfig(t *testing.T) {
	supportedDialects := []Dialect{DialectSQLite, DialectMySQL, DialectPostgres, DialectPgx, DialectMSSQL}

	tests := []struct {
		name        string
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name: "mysql dialect",
			cfgData: `
db:
  maxOpenConns: 20
  maxIdleConns: 10
  connMaxLifeTime: 2m
  dialect: mysql
  mysql:
    host: mysql-host
    port: 3307
    database: mysql_db
    user: mysql-user
    password: mysql-password
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig(supportedDialects)
				cfg.Dialect = DialectMySQL
				cfg.MaxOpenConns = 20
				cfg.MaxIdleConns = 10
				cfg.ConnMaxLifetime = config.TimeDuration(2 * time.Minute)
				cfg.MySQL.Host = "mysql-host"
				cfg.MySQL.Port = 3307
				cfg.MySQL.Database = "mysql_db"
				cfg.MySQL.User = "mysql-user"
				cfg.MySQL.Password = "mysql-password"
				return cfg
			},
		},
		{
			name: "pgx dialect",
			cfgData: `
db:
  dialect: pgx
  postgres:
    host: pg-host
    port: 5433
    database: pg_db
    user: pg-user
    password: pg-password
    sslMode: verify-full
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig(supportedDialects)
				cfg.Dialect = DialectPgx
				cfg.Postgres.Host = "pg-host"
				cfg.Postgres.Port = 5433
				cfg.Postgres.Database = "pg_db"
				cfg.Postgres.User = "pg-user"
				cfg.Postgres.Password = "pg-password"
				cfg.Postgres.SSLMode = PostgresSSLModeVerifyFull
				return cfg
			},
		},
		{
			name: "sqlite dialect",
			cfgData: `
db:
  maxOpenConns: 20
  maxIdleConns: 10
  connMaxLifeTime: 1m
  dialect: sqlite3
  sqlite3:
    path: ":memory:"
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig(supportedDialects)
				cfg.Dialect = DialectSQLite
				cfg.MaxOpenConns = 20
				cfg.MaxIdleConns = 10
				cfg.ConnMaxLifetime = config.TimeDuration(time.Minute)
				cfg.SQLite.Path = ":memory:"
				return cfg
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, dataType := range []config.DataType{config.DataTypeYAML, config.DataTypeJSON} {
				cfgData := tt.cfgData
				if dataType == config.DataTypeJSON {
					cfgData = string(mustYAMLToJSON(t, []byte(cfgData)))
				}

				// Load config using config.Loader.
				appCfg := AppConfig{DB: NewDefaultConfig(supportedDialects)}
				expectedAppCfg := AppConfig{DB: tt.expectedCfg()}
				cfgLoader := config.NewLoader(config.NewViperAdapter())
				err := cfgLoader.LoadFromReader(bytes.NewBuffer([]byte(cfgData)), dataType, appCfg.DB)
				require.NoError(t, err)
				require.Equal(t, expectedAppCfg, appCfg)

				// Load config using viper unmarshal.
				appCfg = AppConfig{DB: NewDefaultConfig(supportedDialects)}
				expectedAppCfg = AppConfig{DB: tt.expectedCfg()}
				vpr := viper.New()
				vpr.SetConfigType(string(dataType))
				require.NoError(t, vpr.ReadConfig(bytes.NewBuffer([]byte(cfgData))))
				require.NoError(t, vpr.Unmarshal(&appCfg, func(c *mapstructure.DecoderConfig) {
					c.DecodeHook = mapstructure.TextUnmarshallerHookFunc()
				}))
				require.Equal(t, expectedAppCfg, appCfg)

				// Load config using yaml/json unmarshal.
				appCfg = AppConfig{DB: NewDefaultConfig(supportedDialects)}
				expectedAppCfg = AppConfig{DB: tt.expectedCfg()}
				switch dataType {
				case config.DataTypeYAML:
					require.NoError(t, yaml.Unmarshal([]byte(cfgData), &appCfg))
				case config.DataTypeJSON:
					require.NoError(t, json.Unmarshal([]byte(cfgData), &appCfg))
				}
				require.Equal(t, expectedAppCfg, appCfg)
			}
		})
	}
}

func TestConfigWithKeyPrefix(t *testing.T) {
	cfgData := `
customDb:
  dialect: mysql
  mysql:
    host: mysql-host
    port: 3307
`
	cfg := NewConfig([]Dialect{DialectMySQL}, WithKeyPrefix("customDb"))
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer([]byte(cfgData)), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, DialectMySQL, cfg.Dialect)
	require.Equal(t, "mysql-host", cfg.MySQL.Host)
	require.Equal(t, 3307, cfg.MySQL.Port)
}

func TestConfigValidationErrors(t *testing.T) {
	supportedDialects := []Dialect{DialectSQLite, DialectMySQL, DialectPostgres, DialectPgx, DialectMSSQL}

	tests := []struct {
		name           string
		yamlData       string
		expectedErrMsg string
	}{
		{
			name: "unknown dialect",
			yamlData: `
db:
  dialect: oracle
`,
			expectedErrMsg: "dialect",
		},
		{
			name: "negative max open conns",
			yamlData: `
db:
  dialect: sqlite3
  maxOpenConns: -1
  sqlite3:
    path: ":memory:"
`,
			expectedErrMsg: "must be positive",
		},
		{
			name: "max idle conns greater than max open conns",
			yamlData: `
db:
  dialect: sqlite3
  maxOpenConns: 5
  maxIdleConns: 10
  sqlite3:
    path: ":memory:"
`,
			expectedErrMsg: "must be less than",
		},
		{
			name: "unknown postgres ssl mode",
			yamlData: `
db:
  dialect: postgres
  postgres:
    host: pg-host
    port: 5432
    sslMode: sometimes
`,
			expectedErrMsg: "sslMode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig(supportedDialects)
			err := config.NewDefaultLoader("").LoadFromReader(
				bytes.NewBuffer([]byte(tt.yamlData)), config.DataTypeYAML, cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.expectedErrMsg)
		})
	}
}

func mustYAMLToJSON(t *testing.T, yamlData []byte) []byte {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, yaml.Unmarshal(yamlData, &m))
	jsonData, err := json.Marshal(m)
	require.NoError(t, err)
	return jsonData
}
