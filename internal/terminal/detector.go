// Package terminal decides whether the process is attached to an interactive
// terminal or running under CI, which selects the console log format.
package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ciEnvVars contains common CI environment variables
var ciEnvVars = []string{
	"CI",                     // Generic CI indicator
	"CONTINUOUS_INTEGRATION", // Generic CI indicator
	"GITHUB_ACTIONS",         // GitHub Actions
	"TRAVIS",                 // Travis CI
	"CIRCLECI",               // Circle CI
	"JENKINS_URL",            // Jenkins
	"BUILD_NUMBER",           // Jenkins/TeamCity/etc
	"GITLAB_CI",              // GitLab CI
	"BUILDKITE",              // Buildkite
	"TF_BUILD",               // Azure DevOps
}

// DetectorOptions contains options for controlling interactive detection
type DetectorOptions struct {
	ForceInteractive    bool // Force interactive mode regardless of environment
	ForceNonInteractive bool // Force non-interactive mode regardless of environment

	// Fd is the descriptor log output is written to. Defaults to stderr.
	Fd uintptr
}

// InteractiveDetector reports whether log output should be formatted for a person.
type InteractiveDetector interface {
	IsInteractive() bool
	IsTerminal() bool
	IsCIEnvironment() bool
}

// DefaultInteractiveDetector implements InteractiveDetector
type DefaultInteractiveDetector struct {
	options DetectorOptions
}

// NewInteractiveDetector creates a new interactive detector with the given options
func NewInteractiveDetector(options DetectorOptions) InteractiveDetector {
	if options.Fd == 0 {
		options.Fd = os.Stderr.Fd()
	}
	return &DefaultInteractiveDetector{
		options: options,
	}
}

// IsInteractive returns true if the current environment is interactive
func (d *DefaultInteractiveDetector) IsInteractive() bool {
	if d.options.ForceInteractive {
		return true
	}
	if d.options.ForceNonInteractive {
		return false
	}
	if d.IsCIEnvironment() {
		return false
	}
	return d.IsTerminal()
}

// IsTerminal checks if the log descriptor is connected to a terminal
func (d *DefaultInteractiveDetector) IsTerminal() bool {
	if strings.TrimSpace(os.Getenv("TERM")) == "dumb" {
		return false
	}
	return term.IsTerminal(int(d.options.Fd))
}

// IsCIEnvironment checks if the current environment is a CI/CD system
func (d *DefaultInteractiveDetector) IsCIEnvironment() bool {
	for _, envVar := range ciEnvVars {
		if value := os.Getenv(envVar); value != "" {
			// CI=false or CI=0 does not mark a CI environment
			if envVar == "CI" {
				return isCITruthy(value)
			}
			return true
		}
	}

	return false
}

// isCITruthy checks if a CI environment variable value should be considered "true"
func isCITruthy(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	return lower != "false" && lower != "0" && lower != "no"
}
