// Package logger provides structured logging utilities built on Go's slog package.
package logger

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amp-labs/objectpool/shutdown"
)

// subsystem stores the default subsystem name for the application, e.g. "objectpool".
// The subsystem value can be overridden on a per-context basis using WithSubsystem().
//
// Thread-safety: atomic.Value allows lock-free concurrent reads and writes.
var subsystem atomic.Value //nolint:gochecknoglobals

// configMutex protects concurrent calls to ConfigureLoggingWithOptions, which
// mutates global state (the default slog logger, the legacy log package, and
// the default subsystem).
var configMutex sync.Mutex //nolint:gochecknoglobals

// contextKey is an unexported type used for storing values in context.Context,
// preventing key collisions with other packages.
type contextKey string

// Fatal logs an error message, triggers the shutdown process (hooks registered
// with shutdown.BeforeShutdown run only if shutdown.SetupHandler was called),
// waits one second, and exits the process.
func Fatal(msg string, args ...any) {
	slog.Error(msg, args...)

	shutdown.Shutdown()

	time.Sleep(time.Second)

	os.Exit(1)
}

// Debug logs a debug-level message using the logger retrieved from the context.
func Debug(ctx context.Context, msg string, args ...any) {
	Get(ctx).DebugContext(ctx, msg, args...)
}

// Info logs an info-level message using the logger retrieved from the context.
func Info(ctx context.Context, msg string, args ...any) {
	Get(ctx).InfoContext(ctx, msg, args...)
}

// Warn logs a warning-level message using the logger retrieved from the context.
func Warn(ctx context.Context, msg string, args ...any) {
	Get(ctx).WarnContext(ctx, msg, args...)
}

// Error logs an error-level message using the logger retrieved from the context.
func Error(ctx context.Context, msg string, args ...any) {
	Get(ctx).ErrorContext(ctx, msg, args...)
}

// Options configures logging behavior and output format.
type Options struct {
	// Subsystem identifies the component generating the logs, e.g. "objectpool".
	Subsystem string

	// JSON selects slog.JSONHandler over slog.TextHandler.
	JSON bool

	// MinLevel is the minimum level for the slog logger.
	MinLevel slog.Level

	// LegacyLevel is the level at which the legacy log package's output is
	// re-emitted through slog.
	LegacyLevel slog.Level

	// Output is the destination for log output. Defaults to os.Stdout.
	Output *os.File
}

// CreateLoggerHandler builds a slog.Handler from the given options, wrapped
// so that errors annotated via AnnotateError surface their attributes.
func CreateLoggerHandler(opts Options) slog.Handler {
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{Level: opts.MinLevel})
	} else {
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{Level: opts.MinLevel})
	}

	return &slogErrorLogger{inner: handler}
}

// ConfigureLoggingWithOptions configures the process-wide default logger and
// returns it. Safe for concurrent use; concurrent calls are serialized.
func ConfigureLoggingWithOptions(opts Options) *slog.Logger {
	configMutex.Lock()
	defer configMutex.Unlock()

	handler := CreateLoggerHandler(opts)
	logger := slog.New(handler)

	slog.SetDefault(logger)

	def := log.Default()
	*def = *slog.NewLogLogger(handler, opts.LegacyLevel)

	subsystem.Store(opts.Subsystem)

	return logger
}

// Option is a functional option for configuring logging via ConfigureLogging.
type Option func(*Options)

// ConfigureLogging configures the process-wide default logger, reading
// LOG_JSON, LOG_LEVEL, LEGACY_LOG_LEVEL and LOG_OUTPUT from the environment
// as defaults, and returns the resulting logger.
func ConfigureLogging(app string, opts ...Option) *slog.Logger {
	options := Options{
		Subsystem:   app,
		JSON:        envBool("LOG_JSON", false),
		MinLevel:    envLevel("LOG_LEVEL", slog.LevelInfo),
		LegacyLevel: envLevel("LEGACY_LOG_LEVEL", slog.LevelInfo),
		Output:      envOutput("LOG_OUTPUT", os.Stdout),
	}

	for _, o := range opts {
		o(&options)
	}

	return ConfigureLoggingWithOptions(options)
}

func envBool(key string, def bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}

	return parsed
}

func envLevel(key string, def slog.Level) slog.Level {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	switch strings.ToUpper(val) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return def
	}
}

func envOutput(key string, def *os.File) *os.File {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	switch val {
	case "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		return def
	}
}

// WithMuted adds a muted flag to the context. When muted, all logging through
// Get(ctx) is suppressed. Useful for high-frequency internal polling paths.
func WithMuted(ctx context.Context, muted bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("mute"), muted)
}

func isMuted(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	val := ctx.Value(contextKey("mute"))
	if val == nil {
		return false
	}

	muted, ok := val.(bool)

	return ok && muted
}

// WithSubsystem overrides the subsystem name on a context. If not set, the
// subsystem configured via ConfigureLogging is used.
func WithSubsystem(ctx context.Context, subsystem string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("subsystem"), subsystem)
}

// GetSubsystem returns the subsystem from the context, or the process-wide
// default if the context has no override.
func GetSubsystem(ctx context.Context) string { //nolint:contextcheck
	if ctx == nil {
		ctx = context.Background()
	}

	if sub := ctx.Value(contextKey("subsystem")); sub != nil {
		if val, ok := sub.(string); ok {
			return val
		}
	}

	if defaultSub := subsystem.Load(); defaultSub != nil {
		if val, ok := defaultSub.(string); ok {
			return val
		}
	}

	return ""
}

var hostnameOnce = sync.OnceValue(func() string { //nolint:gochecknoglobals
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}

	return h
})

func getRealContext(ctx ...context.Context) context.Context {
	for _, c := range ctx {
		if c != nil {
			return c
		}
	}

	return context.Background()
}

var nullLogger = slog.New(&nullHandler{}) //nolint:gochecknoglobals

// nullHandler discards every log record; it backs WithMuted(ctx, true).
type nullHandler struct{}

func (n *nullHandler) Enabled(_ context.Context, _ slog.Level) bool  { return false }
func (n *nullHandler) Handle(_ context.Context, _ slog.Record) error { return nil }
func (n *nullHandler) WithAttrs(_ []slog.Attr) slog.Handler          { return n }
func (n *nullHandler) WithGroup(_ string) slog.Handler               { return n }

// Get returns a logger carrying the subsystem, pod/hostname, and any values
// attached via With(). If the context is muted, a discarding logger is returned.
//
//nolint:contextcheck
func Get(ctx ...context.Context) *slog.Logger {
	realCtx := getRealContext(ctx...)

	if isMuted(realCtx) {
		return nullLogger
	}

	logger := slog.Default().With(
		"subsystem", GetSubsystem(realCtx),
		"pod", hostnameOnce())

	if vals := getValues(realCtx); vals != nil {
		logger = logger.With(vals...)
	}

	return logger
}

// With returns a new context carrying additional key-value pairs that will
// be included in all log messages created from that context via Get().
func With(ctx context.Context, values ...any) context.Context {
	if len(values) == 0 && ctx != nil {
		return ctx
	}

	vals := append(getValues(ctx), values...)

	return context.WithValue(ctx, contextKey("loggerValues"), vals)
}

func getValues(ctx context.Context) []any { //nolint:contextcheck
	if ctx == nil {
		ctx = context.Background()
	}

	vals := ctx.Value(contextKey("loggerValues"))
	if vals == nil {
		return nil
	}

	val, ok := vals.([]any)
	if !ok {
		return nil
	}

	return val
}
