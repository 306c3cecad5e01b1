package config

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"edgy/internal/action"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Is makes errors.Is(err, ErrInvalidConfig) hold for validation failures.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateGesture(&c.Gesture)...)
	errs = append(errs, validateScreen(&c.Screen)...)
	errs = append(errs, validateDevices(&c.Devices)...)
	errs = append(errs, validateBus(&c.Bus)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateActions(c.Actions)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateGesture(g *GestureConfig) ValidationErrors {
	var errs ValidationErrors

	if !positive(g.ZoneWidth) {
		errs = append(errs, ValidationError{
			Field:   "gesture.zone_width",
			Message: "zone width must be a positive number",
		})
	}
	if !positive(g.DetectionThreshold) {
		errs = append(errs, ValidationError{
			Field:   "gesture.detection_threshold",
			Message: "detection threshold must be a positive number",
		})
	}

	return errs
}

func positive(f float64) bool {
	return f > 0 && !math.IsInf(f, 1)
}

func validateScreen(s *ScreenConfig) ValidationErrors {
	var errs ValidationErrors

	if s.Width < 0 {
		errs = append(errs, ValidationError{Field: "screen.width", Message: "width cannot be negative"})
	}
	if s.Height < 0 {
		errs = append(errs, ValidationError{Field: "screen.height", Message: "height cannot be negative"})
	}

	return errs
}

// uinput device names are limited to 80 bytes including the terminator.
const maxMirrorName = 79

func validateDevices(d *DevicesConfig) ValidationErrors {
	var errs ValidationErrors

	for i, name := range d.Names {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("devices.names[%d]", i),
				Message: "device name cannot be empty",
			})
		}
	}

	if d.Grab {
		switch {
		case d.MirrorName == "":
			errs = append(errs, ValidationError{
				Field:   "devices.mirror_name",
				Message: "mirror name is required when grab is enabled",
			})
		case len(d.MirrorName) > maxMirrorName:
			errs = append(errs, ValidationError{
				Field:   "devices.mirror_name",
				Message: fmt.Sprintf("mirror name longer than %d bytes", maxMirrorName),
			})
		}
	}

	return errs
}

var busNameElement = regexp.MustCompile(`^[A-Za-z_-][A-Za-z0-9_-]*$`)

func validateBus(b *BusConfig) ValidationErrors {
	var errs ValidationErrors

	if b.Enabled && !isValidBusName(b.Name) {
		errs = append(errs, ValidationError{
			Field:   "bus.name",
			Message: fmt.Sprintf("invalid bus name: %q", b.Name),
		})
	}

	return errs
}

// isValidBusName checks a well-known D-Bus name: at least two dot separated
// elements, none starting with a digit, at most 255 bytes.
func isValidBusName(name string) bool {
	if name == "" || len(name) > 255 {
		return false
	}
	elements := strings.Split(name, ".")
	if len(elements) < 2 {
		return false
	}
	for _, e := range elements {
		if !busNameElement.MatchString(e) {
			return false
		}
	}
	return true
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
		// Valid formats
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	return errs
}

func validateActions(actions []string) ValidationErrors {
	var errs ValidationErrors

	for i, s := range actions {
		if _, err := action.Parse(s); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("actions[%d]", i),
				Message: err.Error(),
			})
		}
	}

	return errs
}
