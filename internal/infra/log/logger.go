package log

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Logger receives every entry (file sink). consoleLogger only gets SUCCESS and ERROR lines.
// Both are no-ops until Init is called.
var Logger = zap.NewNop()
var consoleLogger = zap.NewNop()

var initOnce sync.Once
var initErr error

// Init builds the file and console loggers. Safe to call more than once; only the first call counts.
func Init(logsDir string) error {
	initOnce.Do(func() {
		initErr = initializeLoggers(logsDir)
	})
	return initErr
}

// Sync flushes buffered entries, called on shutdown.
func Sync() {
	_ = Logger.Sync()
	_ = consoleLogger.Sync()
}

func initializeLoggers(logsDir string) error {
	if logsDir == "" {
		logsDir = "logs"
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	fileCore := zapcore.NewCore(
		&fileEncoder{Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())},
		getLogFileWriter(filepath.Join(logsDir, "app.log")),
		zapcore.DebugLevel,
	)

	consoleConfig := zap.NewDevelopmentConfig()
	consoleConfig.EncoderConfig.EncodeLevel = customLevelEncoder
	consoleConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleConfig.EncoderConfig.EncodeCaller = nil
	consoleConfig.Development = false
	consoleConfig.DisableStacktrace = true
	consoleConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	console, err := consoleConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to build console logger: %w", err)
	}

	Logger = zap.New(fileCore)
	consoleLogger = console
	return nil
}

// GenerateRequestID returns a short random id to correlate a request with its response.
func GenerateRequestID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// LogRequest records an outgoing RPC call (file only).
func LogRequest(requestID, method, target string, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("target", target),
	}, fields...)
	Logger.Debug("RPC request", allFields...)
}

// LogResponse records the outcome of an RPC call. Failures are echoed to the console.
func LogResponse(requestID string, durationMs int64, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("request_id", requestID),
		zap.Int64("duration_ms", durationMs),
	}, fields...)

	if err == nil {
		Logger.Debug("RPC response", allFields...)
		return
	}
	Logger.Error("RPC response", append(allFields, zap.Error(err))...)
	consoleLogger.Error(fmt.Sprintf("✗ RPC request failed: %v", err))
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
)

func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(colorCyan + "DEBUG" + colorReset)
	case zapcore.InfoLevel:
		enc.AppendString(colorGreen + "SUCCESS" + colorReset) // console only shows INFO via LogSuccess
	case zapcore.WarnLevel:
		enc.AppendString(colorYellow + "WARN" + colorReset)
	case zapcore.ErrorLevel, zapcore.FatalLevel, zapcore.PanicLevel:
		enc.AppendString(colorRed + level.CapitalString() + colorReset)
	default:
		enc.AppendString(colorWhite + level.String() + colorReset)
	}
}

func LogInfo(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)
}

// LogSuccess writes to the file and prints a check-marked line to the console.
func LogSuccess(message string, fields ...zap.Field) {
	Logger.Info(message, fields...)
	consoleLogger.Info("✓ " + message + consoleSuffix(fields))
}

// LogError writes to the file and prints a cross-marked line to the console.
func LogError(message string, fields ...zap.Field) {
	Logger.Error(message, fields...)
	consoleLogger.Error("✗ " + message + consoleSuffix(fields))
}

func LogWarn(message string, fields ...zap.Field) {
	Logger.Warn(message, fields...)
}

func LogDebug(message string, fields ...zap.Field) {
	Logger.Debug(message, fields...)
}

// consoleSuffix picks the fields worth showing on a single console line.
func consoleSuffix(fields []zap.Field) string {
	var suffix string
	for _, field := range fields {
		switch {
		case field.Key == "address" && field.Type == zapcore.StringType:
			suffix += " " + field.String
		case field.Key == "duration_ms" && field.Type == zapcore.Int64Type:
			suffix += fmt.Sprintf(" (%dms)", field.Integer)
		case field.Type == zapcore.ErrorType:
			if err, ok := field.Interface.(error); ok {
				suffix += ": " + err.Error()
			}
		}
	}
	return suffix
}

// MaxLogFileSize - app.log is truncated once it grows past this size
const MaxLogFileSize = 50 * 1024 * 1024

type truncatingWriter struct {
	mu   sync.Mutex
	file *os.File
	path string
}

func (w *truncatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if info, err := w.file.Stat(); err == nil && info.Size() > MaxLogFileSize {
		w.file.Close()
		file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return 0, fmt.Errorf("failed to truncate log file: %w", err)
		}
		w.file = file
	}
	return w.file.Write(p)
}

func (w *truncatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

func getLogFileWriter(path string) zapcore.WriteSyncer {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v, falling back to stderr\n", path, err)
		return zapcore.AddSync(os.Stderr)
	}
	return &truncatingWriter{file: file, path: path}
}

// fileEncoder writes "<time>     <LEVEL> <msg>\t{json fields}" lines.
type fileEncoder struct {
	zapcore.Encoder
}

func (e *fileEncoder) Clone() zapcore.Encoder {
	return &fileEncoder{Encoder: e.Encoder.Clone()}
}

func (e *fileEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := buffer.NewPool().Get()

	buf.AppendString(entry.Time.Format("2006-01-02 15:04:05"))
	buf.AppendString("     ")
	buf.AppendString(entry.Level.CapitalString())
	buf.AppendString(" ")
	buf.AppendString(entry.Message)

	if len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, field := range fields {
			field.AddTo(enc)
		}
		if data, err := json.Marshal(enc.Fields); err == nil {
			buf.AppendString("\t")
			buf.Write(data)
		}
	}

	buf.AppendString("\n")
	return buf, nil
}
