package templates

import "errors"

var (
	ErrTemplateNotFound  = errors.New("template not found")
	ErrDuplicateTemplate = errors.New("duplicate template")
	ErrInvalidTemplate   = errors.New("invalid template")
	ErrLoadTemplates     = errors.New("failed to load templates")
)
