package logger

import (
	"fmt"
)

type DefaultLogger struct {
}

func (d *DefaultLogger) Error(err error, text, service, method, value string) {
	fmt.Printf("ERROR %s in service %s method %s: '%s' error %s\r\n", text, service, method, value, err)
}

func (d *DefaultLogger) Info(text string, service string, method string) {
	fmt.Printf("INFO service %s; method %s; text '%s'\r\n", text, service, method)
}

func (d *DefaultLogger) Debug(text string, service string, method string) {
	fmt.Printf("DEBUG service %s; method %s; text '%s'\r\n", text, service, method)
}
