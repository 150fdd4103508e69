package magiclink

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Logger is the minimal logging surface this package needs. Messages are a
// short description followed by alternating key/value context pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args...) }

func (defLogger) print(level, msg string, args ...any) {
	line := "[" + level + "] MAGICLINK " + msg
	for i := 0; i+1 < len(args); i += 2 {
		line += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	fmt.Println(line)
}

// ZerologAdapter bridges a zerolog.Logger into the package Logger interface
// so applications already on zerolog keep one log stream.
type ZerologAdapter struct {
	log zerolog.Logger
}

// NewZerologAdapter wraps the given zerolog logger.
func NewZerologAdapter(log zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{log: log}
}

func (z *ZerologAdapter) Debug(msg string, args ...any) { z.emit(z.log.Debug(), msg, args...) }
func (z *ZerologAdapter) Info(msg string, args ...any)  { z.emit(z.log.Info(), msg, args...) }
func (z *ZerologAdapter) Warn(msg string, args ...any)  { z.emit(z.log.Warn(), msg, args...) }
func (z *ZerologAdapter) Error(msg string, args ...any) { z.emit(z.log.Error(), msg, args...) }

func (z *ZerologAdapter) emit(evt *zerolog.Event, msg string, args ...any) {
	for i := 0; i+1 < len(args); i += 2 {
		evt = evt.Interface(fmt.Sprint(args[i]), args[i+1])
	}
	evt.Msg(msg)
}
