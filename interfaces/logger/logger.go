package logger

// Logger receives client diagnostics. Error additionally carries the value
// involved (argument digest, stream key) when there is one.
type Logger interface {
	Error(err error, text, service, method, value string)
	Info(text string, service string, method string)
	Debug(text string, service string, method string)
}
