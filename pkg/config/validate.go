package config

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Validate checks cfg's `validate` struct tags, grounded on the teacher's
// go-playground/validator usage for the same purpose.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
