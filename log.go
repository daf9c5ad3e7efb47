package mcnet

import (
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
)

// Logger is the pluggable logging surface. The package logs protocol
// level noise through it; embedders install their own implementation
// with SetLogger to route that noise into their logging stack.
type Logger interface {
	SetOutput(output io.Writer)
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithStack(err interface{})
}

var mclog Logger

func getLogger() Logger {
	if mclog == nil {
		mclog = newDefaultLogger()
	}
	return mclog
}

func SetLogger(logger Logger) {
	mclog = logger
}

func SetLoggerOutput(output io.Writer) {
	getLogger().SetOutput(output)
}

// defaultLog writes to stderr with a timestamp and the package tag. It
// carries no levels beyond an error marker; anything richer belongs in
// an installed Logger.
type defaultLog struct {
	l *log.Logger
}

func newDefaultLogger() *defaultLog {
	flags := log.Ldate | log.Ltime | log.Lmicroseconds | log.Lmsgprefix
	return &defaultLog{l: log.New(os.Stderr, "[mcnet] ", flags)}
}

func (d *defaultLog) SetOutput(output io.Writer) {
	d.l.SetOutput(output)
}

func (d *defaultLog) Infof(format string, args ...interface{}) {
	d.l.Printf(format, args...)
}

func (d *defaultLog) Errorf(format string, args ...interface{}) {
	d.l.Printf("error: "+format, args...)
}

func (d *defaultLog) Fatalf(format string, args ...interface{}) {
	d.l.Fatalf(format, args...)
}

func (d *defaultLog) WithStack(err interface{}) {
	d.l.Fatalf("\n%+v", errors.Errorf("%v", err))
}
