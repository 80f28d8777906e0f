package utils

import (
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// Common structured log fields.
const (
	FieldComponent = "component"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldClientIP  = "client_ip"
	FieldUserID    = "user_id"
	FieldFamilyID  = "family_id"
	FieldEmail     = "email"
	FieldError     = "error"
)

var (
	emailRegex              = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	amountWithCurrencyRegex = regexp.MustCompile(`\b\d+([.,]\d{1,2})?\s*(€|EUR|CHF|GBP|USD|£|\$)`)
	ibanRegex               = regexp.MustCompile(`[A-Z]{2}\d{2}[A-Z0-9]{10,30}`)
	cardRegex               = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)
	uuidRegex               = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// MaskString hides emails, bank identifiers and amounts, and shortens UUIDs.
func MaskString(input string) string {
	result := emailRegex.ReplaceAllString(input, "***@***.***")
	result = ibanRegex.ReplaceAllString(result, "****IBAN****")
	result = cardRegex.ReplaceAllString(result, "****-****-****-****")
	result = amountWithCurrencyRegex.ReplaceAllString(result, "***€")
	return uuidRegex.ReplaceAllStringFunc(result, MaskID)
}

// MaskID keeps the first 8 characters of an id.
func MaskID(id string) string {
	if len(id) <= 8 {
		return "***"
	}
	return id[:8] + "..."
}

func MaskEmail(string) string {
	return "***@***.***"
}

type LoggerOptions struct {
	Level      string
	Format     string
	Production bool
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// maskAttr rewrites string attributes before they reach the handler.
func maskAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case FieldEmail:
		a.Value = slog.StringValue(MaskEmail(a.Value.String()))
		return a
	case FieldUserID, FieldFamilyID:
		a.Value = slog.StringValue(MaskID(a.Value.String()))
		return a
	}
	if a.Value.Kind() == slog.KindString {
		a.Value = slog.StringValue(MaskString(a.Value.String()))
	}
	return a
}

// NewLogger builds a text or JSON logger. In production every string
// attribute, the message included, is masked.
func NewLogger(w io.Writer, opts LoggerOptions) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	if opts.Production {
		handlerOpts.ReplaceAttr = maskAttr
	}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// Component returns a child logger tagged with the component name.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(FieldComponent, name)
}
