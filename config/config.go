package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPrefix is prepended to every variable name unless LoadOptions says otherwise.
const DefaultPrefix = "BEAVER_"

var (
	// ErrNotStructPointer is returned when Load receives anything but a pointer to a struct.
	ErrNotStructPointer = errors.New("config: target must be a non-nil pointer to a struct")

	// ErrRequired is returned when a field tagged required has no value and no default.
	ErrRequired = errors.New("config: required variable not set")
)

// LoadOptions defines options for loading configuration from environment variables.
type LoadOptions struct {
	Prefix string // Prefix to prepend to environment variable names (default: "BEAVER_")
	Debug  bool   // Print resolved variables to stderr; values of secret fields are masked
}

// envField is the parsed form of an `env` struct tag.
type envField struct {
	name         string
	defaultValue string
	hasDefault   bool
	required     bool
	secret       bool
}

// Load populates a struct from .env file and environment variables using reflection.
// A .env file in the working directory is loaded first; variables already present
// in the process environment win over the file.
//
// The function uses struct field tags to determine environment variable names:
//   - `env:"VAR_NAME"`: Maps the field to the specified environment variable
//   - `env:"VAR_NAME,default:value"`: Provides a default value if env var is not set
//   - `env:"VAR_NAME,required"`: Fails with ErrRequired when neither env nor default is set
//   - `env:"VAR_NAME,secret"`: Masks the value in debug output
//
// Example:
//
//	type Config struct {
//	    SecretKey string        `env:"TRUST_SIGNER_SECRET_KEY,required,secret"`
//	    MaxAge    time.Duration `env:"TRUST_SIGNER_MAX_AGE,default:5m"`
//	}
//
//	var cfg Config
//	err := config.Load(&cfg, config.LoadOptions{Prefix: "MYAPP_"})
//	// Will look for MYAPP_TRUST_SIGNER_SECRET_KEY and MYAPP_TRUST_SIGNER_MAX_AGE
func Load(cfg interface{}, opts ...LoadOptions) error {
	options := LoadOptions{Prefix: DefaultPrefix}
	if len(opts) > 0 {
		options = opts[0]
	}

	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}

	// Silently try to load .env file, ignore if not found
	_ = godotenv.Load()

	v := rv.Elem()
	t := v.Type()
	printDebug := options.Debug || os.Getenv(DefaultPrefix+"CONFIG_DEBUG") == "true"

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" || !field.IsExported() {
			continue
		}

		ef := parseTag(envTag)
		fullEnvName := options.Prefix + ef.name

		value, ok := os.LookupEnv(fullEnvName)
		if !ok || value == "" {
			value = ef.defaultValue
		}
		if value == "" && ef.required && !ef.hasDefault {
			return fmt.Errorf("%w: %s", ErrRequired, fullEnvName)
		}

		if printDebug {
			shown := value
			if ef.secret && shown != "" {
				shown = "****"
			}
			fmt.Fprintf(os.Stderr, "[BEAVER] %s=%s\n", fullEnvName, shown)
		}

		if value != "" {
			if err := setFieldValue(v.Field(i), value); err != nil {
				return fmt.Errorf("config: %s: %w", fullEnvName, err)
			}
		}
	}

	return nil
}

// parseTag splits `NAME,default:x,required,secret`. Unknown options are ignored.
func parseTag(tag string) envField {
	parts := strings.Split(tag, ",")
	field := envField{name: strings.TrimSpace(parts[0])}

	for _, part := range parts[1:] {
		switch {
		case strings.HasPrefix(part, "default:"):
			field.defaultValue = strings.TrimPrefix(part, "default:")
			field.hasDefault = true
		case part == "required":
			field.required = true
		case part == "secret":
			field.secret = true
		}
	}
	return field
}

// setFieldValue sets the value of a struct field using reflection and type conversion.
//
// Supported types:
//   - string: Direct assignment
//   - int, int8..int64: Parsed using strconv.ParseInt with base 10
//   - uint, uint8..uint64: Parsed using strconv.ParseUint with base 10
//   - float32, float64: Parsed using strconv.ParseFloat
//   - bool: Parsed using strconv.ParseBool (supports "true", "false", "1", "0", etc.)
//   - time.Duration: Parsed using time.ParseDuration
//   - []string: Comma-separated, entries trimmed, empty entries dropped
//
// Unsupported kinds are skipped silently.
func setFieldValue(field reflect.Value, value string) error {
	// Check for time.Duration first
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		// Skip unsupported field types silently
		return nil
	}
	return nil
}
