package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	envAppEnv         = "APP_ENV"
	envAddress        = "ADDRESS"
	envDatabaseDSN    = "DATABASE_DSN"
	envSecretKey      = "JWT_SECRET"
	envSessionTTL     = "SESSION_TTL"
	envActionTTL      = "ACTION_TOKEN_TTL"
	envResetTTL       = "RESET_TOKEN_TTL"
	envAllowedOrigins = "ALLOWED_ORIGINS"
	envPublicBaseURL  = "FRONTEND_URL"
	envAdminEmail     = "ADMIN_EMAIL"
	envMailFrom       = "EMAIL_FROM"
	envSMTPHost       = "EMAIL_HOST"
	envSMTPPort       = "EMAIL_PORT"
	envSMTPUser       = "EMAIL_USER"
	envSMTPPassword   = "EMAIL_PASS"
	envNotifyTimeout  = "NOTIFY_TIMEOUT"
)

// parseEnv loads a dotenv file into the process environment (without
// overriding variables that are already set) and copies every recognised
// variable into config.
//
// The dotenv path comes from -env; without it ".env" in the working
// directory is tried and silently skipped when absent. A broken or
// explicitly requested but missing file panics, like a broken JSON file.
func parseEnv(config *Config, args []string) {
	path := flagx.EnvFileFlag(args)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	applyEnv(config, os.LookupEnv)
}

func applyEnv(config *Config, lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	str(envAppEnv, &config.Env)
	str(envAddress, &config.EndpointAddrHTTP)
	str(envDatabaseDSN, &config.DatabaseDSN)
	str(envSecretKey, &config.SecretKey)
	dur(envSessionTTL, &config.SessionTokenValidityDuration)
	dur(envActionTTL, &config.ActionTokenValidityDuration)
	dur(envResetTTL, &config.ResetTokenValidityDuration)
	if v, ok := lookup(envAllowedOrigins); ok && v != "" {
		config.AllowedOrigins = flagx.SplitList(v)
	}
	str(envPublicBaseURL, &config.PublicBaseURL)
	str(envAdminEmail, &config.AdminEmail)
	str(envMailFrom, &config.MailFrom)
	str(envSMTPHost, &config.SMTPHost)
	if v, ok := lookup(envSMTPPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.SMTPPort = port
	}
	str(envSMTPUser, &config.SMTPUser)
	str(envSMTPPassword, &config.SMTPPassword)
	dur(envNotifyTimeout, &config.NotifyTimeout)
}
