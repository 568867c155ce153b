package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks cfg using struct tags and the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if _, err := parseMode(cfg.Storage.DirMode); err != nil {
		return fmt.Errorf("storage.dir_mode: %w", err)
	}
	if _, err := parseMode(cfg.Storage.FileMode); err != nil {
		return fmt.Errorf("storage.file_mode: %w", err)
	}
	if cfg.Index.Type == "" {
		return fmt.Errorf("index.type: must not be empty")
	}
	if cfg.Catalog.Type == "rest" && cfg.Catalog.REST.Endpoint == "" {
		return fmt.Errorf("catalog.rest.endpoint: required when catalog.type is rest")
	}
	return nil
}

// parseMode parses an octal permission string: "0750", "750" or "0o750".
func parseMode(s string) (os.FileMode, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal mode %q (quote it in YAML)", s)
	}
	if n&^uint64(os.ModePerm) != 0 {
		return 0, fmt.Errorf("mode %#o has bits outside 0777", n)
	}
	return os.FileMode(n), nil
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
