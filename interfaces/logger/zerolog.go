package logger

import (
	"github.com/rs/zerolog"
)

// ZeroLogger adapts a zerolog.Logger to the client Logger interface.
type ZeroLogger struct {
	log zerolog.Logger
}

func NewZeroLogger(log zerolog.Logger) *ZeroLogger {
	return &ZeroLogger{log: log}
}

func (z *ZeroLogger) Error(err error, text, service, method, value string) {
	z.log.Error().Err(err).Str("service", service).Str("method", method).Str("value", value).Msg(text)
}

func (z *ZeroLogger) Info(text string, service string, method string) {
	z.log.Info().Str("service", service).Str("method", method).Msg(text)
}

func (z *ZeroLogger) Debug(text string, service string, method string) {
	z.log.Debug().Str("service", service).Str("method", method).Msg(text)
}
