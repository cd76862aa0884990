package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const TimeLayout = "2006-01-02 15:04:05"

// ActionLogger writes "<time> - <message>" lines to stdout and appends them
// to the log file.
type ActionLogger struct {
	zl *zap.Logger
}

func NewActionLogger(fs afero.Fs, path string, stdout io.Writer, opts ...zap.Option) *ActionLogger {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "time",
		MessageKey:       "msg",
		EncodeTime:       zapcore.TimeEncoderOfLayout(TimeLayout),
		ConsoleSeparator: " - ",
		LineEnding:       zapcore.DefaultLineEnding,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(stdout)), zapcore.InfoLevel),
		zapcore.NewCore(enc, &appendFile{fs: fs, path: path}, zapcore.InfoLevel),
	)

	opts = append([]zap.Option{zap.ErrorOutput(zapcore.Lock(os.Stderr))}, opts...)
	return &ActionLogger{zl: zap.New(core, opts...)}
}

func (l *ActionLogger) Log(msg string) {
	l.zl.Info(msg)
}

func (l *ActionLogger) Logf(format string, args ...any) {
	l.zl.Info(fmt.Sprintf(format, args...))
}

// appendFile opens the log file for every write, so the file shows up as
// soon as its directory exists. Write failures are reported on Log and
// never reach the caller.
type appendFile struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

func (a *appendFile) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.append(p); err != nil {
		Log.Warn("failed to append to log file",
			zap.String("path", a.path),
			zap.Error(err))
	}

	return len(p), nil
}

func (a *appendFile) append(p []byte) (err error) {
	f, err := a.fs.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()

	if _, err := f.Write(p); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

func (a *appendFile) Sync() error {
	return nil
}
