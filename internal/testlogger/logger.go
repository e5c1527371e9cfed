package testlogger

import (
	"testing"
)

type Logger struct {
	T *testing.T
}

func (s *Logger) Error(err error, text, service, method, value string) {
	s.T.Logf("ERROR %s in service %s method %s: '%s' error %s\r\n", text, service, method, value, err)
}

func (s *Logger) Info(text string, service string, method string) {
	s.T.Logf("INFO service %s; method %s; text '%s'\r\n", text, service, method)
}

func (s *Logger) Debug(text string, service string, method string) {
	s.T.Logf("DEBUG service %s; method %s; text '%s'\r\n", text, service, method)
}

func New(t *testing.T) *Logger {
	return &Logger{T: t}
}
