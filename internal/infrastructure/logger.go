package infrastructure

import "go.uber.org/zap"

// NewLogger returns a development logger for mode "development" and a JSON
// production logger otherwise.
func NewLogger(mode string) (*zap.Logger, error) {
	if mode == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
