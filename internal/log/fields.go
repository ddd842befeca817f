package log

import (
	"time"

	"go.uber.org/zap"
)

// Field constructors mirror zap's but keep call sites free of a direct
// zap import for the common cases.

func String(key, value string) zap.Field { return zap.String(key, value) }

func Int(key string, value int) zap.Field { return zap.Int(key, value) }

func Float64(key string, value float64) zap.Field { return zap.Float64(key, value) }

func Bool(key string, value bool) zap.Field { return zap.Bool(key, value) }

func Duration(key string, value time.Duration) zap.Field { return zap.Duration(key, value) }

func Any(key string, value any) zap.Field { return zap.Any(key, value) }

// Cause is the canonical way to attach an error to a log line.
func Cause(err error) zap.Field { return zap.Error(err) }
