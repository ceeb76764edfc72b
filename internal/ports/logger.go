package ports

import "github.com/cpro-iot/scaleship/pkg/log"

// Logger is the structured logger used by the application layer.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for the application layer.
var (
	String   = log.String
	Int      = log.Int
	Duration = log.Duration
	Strings  = log.Strings
	Err      = log.Err
)
