package config

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// SSM parameter names consulted in prod for host, user and password.
	SSM SSMParams `mapstructure:"ssm"`
}

type SSMParams struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// ParameterLookup resolves a (possibly encrypted) parameter by name.
// It returns "" when the parameter cannot be read.
type ParameterLookup func(name string, decrypt bool) string

// DSN builds the connection string. In prod the host and credentials come
// from AWS SSM Parameter Store; otherwise the configured values are used.
func (cfg *PostgresConfig) DSN(env string) string {
	return cfg.dsn(env, getParameterStoreValue)
}

func (cfg *PostgresConfig) dsn(env string, lookup ParameterLookup) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password
	if env == "prod" {
		host = lookupOr(lookup, cfg.SSM.Host, host)
		user = lookupOr(lookup, cfg.SSM.User, user)
		password = lookupOr(lookup, cfg.SSM.Password, password)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, cfg.DBName, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

func lookupOr(lookup ParameterLookup, name, fallback string) string {
	if name == "" {
		return fallback
	}
	if v := lookup(name, true); v != "" {
		return v
	}
	return fallback
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	baseCtx := context.Background()
	ctxWithTimeout, cancel := context.WithTimeout(baseCtx, 5*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
