package templates

import "github.com/okian/fairway/pkg/logger"

// Option configures Load.
type Option func(*settings)

type settings struct {
	files    []string
	defaults bool
	log      logger.Logger
}

// WithFiles loads extra YAML template files after the built-in ones. A file
// may add new templates or newer versions of existing ones.
func WithFiles(paths ...string) Option {
	return func(s *settings) {
		s.files = append(s.files, paths...)
	}
}

// WithoutDefaults skips the built-in templates.
func WithoutDefaults() Option {
	return func(s *settings) {
		s.defaults = false
	}
}

// WithLogger sets the logger used for resolution decisions.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		s.log = l
	}
}
