package logging

import "go.uber.org/zap"

// New builds the process logger. Development mode switches to the console
// encoder and enables debug level.
func New(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
