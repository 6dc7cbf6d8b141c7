package config

import (
	_ "embed"
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks cfg against the #Config schema.
func Validate(cfg *Config) error {
	if err := validateAt("#Config", cfg); err != nil {
		return err
	}

	// The schema checks the shape; the mode must also parse.
	if _, err := cfg.Resource.Mode(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ValidateGraph checks only the graph section.
func ValidateGraph(g *GraphConfig) error {
	return validateAt("#Config.graph", g)
}

func validateAt(path string, v any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath(path))

	value := ctx.Encode(v)
	if err := value.Err(); err != nil {
		return fmt.Errorf("%w: encode: %v", ErrInvalidConfig, err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, cueerrors.Details(err, nil))
	}
	return nil
}
