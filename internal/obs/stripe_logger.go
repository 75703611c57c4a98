package obs

import (
	"fmt"

	"github.com/rs/zerolog"
)

// StripeLogger adapts a zerolog logger to stripe-go's LeveledLoggerInterface.
type StripeLogger struct {
	Logger zerolog.Logger
}

func (l StripeLogger) Debugf(format string, v ...interface{}) {
	l.Logger.Debug().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}

func (l StripeLogger) Infof(format string, v ...interface{}) {
	l.Logger.Info().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}

func (l StripeLogger) Warnf(format string, v ...interface{}) {
	l.Logger.Warn().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}

func (l StripeLogger) Errorf(format string, v ...interface{}) {
	l.Logger.Error().Str("component", "stripe").Msg(fmt.Sprintf(format, v...))
}
