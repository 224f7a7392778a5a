package core

import "strings"

// Environment identifies where the assistant is running. It drives log
// verbosity and whether local conveniences (console logs, .env) apply.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether the environment corresponds to production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// Verbose reports whether debug-level logs should be emitted.
func (e Environment) Verbose() bool {
	return e == Development || e == Testing
}

// ParseEnvironment maps APP_ENV style values ("prod", "Production", "stg")
// onto the known environments. Anything unrecognised is Development.
func ParseEnvironment(v string) Environment {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "production", "prod":
		return Production
	case "staging", "stg":
		return Staging
	case "testing", "test":
		return Testing
	default:
		return Development
	}
}
