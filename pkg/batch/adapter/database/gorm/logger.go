package gorm

import (
	"context"
	"errors"
	"time"

	gormlogger "gorm.io/gorm/logger"

	logger "github.com/tigerroll/relist/pkg/batch/support/util/logger"
)

// gormLogger bridges GORM's logging into the application logger. SQL is only
// emitted at debug level; slow queries and errors surface as warnings.
type gormLogger struct {
	slowThreshold time.Duration
}

// NewGormLogger creates the GORM logger bridge.
func NewGormLogger() gormlogger.Interface {
	return &gormLogger{slowThreshold: 200 * time.Millisecond}
}

func (l *gormLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	logger.Debugf(msg, data...)
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	logger.Warnf(msg, data...)
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	logger.Errorf(msg, data...)
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound):
		sql, rows := fc()
		logger.Warnf("SQL error (%.3fms, rows: %d): %v [%s]", float64(elapsed.Nanoseconds())/1e6, rows, err, sql)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold:
		sql, rows := fc()
		logger.Warnf("Slow SQL (%.3fms, rows: %d): [%s]", float64(elapsed.Nanoseconds())/1e6, rows, sql)
	default:
		sql, rows := fc()
		logger.Debugf("SQL (%.3fms, rows: %d): [%s]", float64(elapsed.Nanoseconds())/1e6, rows, sql)
	}
}
