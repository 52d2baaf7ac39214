package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3001")
//	-d string   PostgreSQL DSN, or memory://
//	-s string   token signing secret
//	-e string   environment (development, production)
//	-u string   public base URL used in e-mail links
//	-o string   comma separated allowed origins
//	-m string   administrator e-mail address
//	-t int      session token validity, minutes
//	-r int      reset token validity, minutes
//
// Only these flags are looked at (flagx.FilterArgs), so the -c and -env
// flags handled elsewhere do not collide.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-e", "-u", "-o", "-m", "-t", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Env, "e", config.Env, "environment")
	fs.StringVar(&config.PublicBaseURL, "u", config.PublicBaseURL, "public base URL")
	origins := flagx.StringList(config.AllowedOrigins)
	fs.Var(&origins, "o", "allowed origins, comma separated")
	fs.StringVar(&config.AdminEmail, "m", config.AdminEmail, "administrator e-mail")
	sessionValidity := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session_token_validity_duration (in minutes)")
	resetValidity := fs.Int("r", int(config.ResetTokenValidityDuration.Minutes()), "reset_token_validity_duration (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AllowedOrigins = []string(origins)

	// TTLs from env or JSON may be finer than a minute; keep them unless
	// the flag was given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionTokenValidityDuration = time.Duration(*sessionValidity) * time.Minute
		case "r":
			config.ResetTokenValidityDuration = time.Duration(*resetValidity) * time.Minute
		}
	})
}
