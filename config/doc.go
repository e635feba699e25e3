// Package config loads struct-based configuration from environment variables
// and an optional .env file.
//
// Fields opt in with an `env` tag. Options follow the variable name, comma
// separated:
//
//	type Config struct {
//	    SecretKey     string        `env:"TRUST_SIGNER_SECRET_KEY,required,secret"`
//	    MaxAgeMinutes int           `env:"TRUST_SIGNER_MAX_AGE_MINUTES,default:5"`
//	    Timeout       time.Duration `env:"TIMEOUT,default:30s"`
//	    Hosts         []string      `env:"HOSTS"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return fmt.Errorf("failed to load config: %w", err)
//	}
//
// Every name is prefixed with "BEAVER_" unless LoadOptions carries another
// prefix (an explicit empty prefix disables prefixing).
//
// # Environment File Support
//
// A .env file in the working directory is read with github.com/joho/godotenv
// before the lookup. Variables already present in the process environment take
// precedence over the file. A missing file is not an error.
//
// # Debug Mode
//
// Setting BEAVER_CONFIG_DEBUG=true, or LoadOptions.Debug, prints every resolved
// variable to stderr. Fields tagged `secret` are printed as "****".
//
// # Supported Types
//
// string, signed and unsigned integers, floats, bool, time.Duration and
// []string (comma separated). Other kinds are skipped.
package config
