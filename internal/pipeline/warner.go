package pipeline

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DefaultWarnerSize bounds the number of remembered reasons
const DefaultWarnerSize = 256

// Warner logs operator warnings once per reason string
type Warner struct {
	seen   *lru.Cache[string, struct{}]
	logger *zap.Logger
}

// NewWarner creates a new warn-once registry
func NewWarner(logger *zap.Logger, size int) (*Warner, error) {
	if size <= 0 {
		size = DefaultWarnerSize
	}
	seen, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &Warner{seen: seen, logger: logger}, nil
}

// Once reports whether reason is seen for the first time
func (w *Warner) Once(reason string) bool {
	found, _ := w.seen.ContainsOrAdd(reason, struct{}{})
	return !found
}

// Warn logs msg at warn level the first time reason is seen
func (w *Warner) Warn(reason, msg string, fields ...zap.Field) bool {
	if !w.Once(reason) {
		return false
	}
	w.logger.Warn(msg, append(fields, zap.String("reason", reason))...)
	return true
}

// Info logs msg at info level the first time reason is seen
func (w *Warner) Info(reason, msg string, fields ...zap.Field) bool {
	if !w.Once(reason) {
		return false
	}
	w.logger.Info(msg, append(fields, zap.String("reason", reason))...)
	return true
}

// Forget allows reason to be logged again
func (w *Warner) Forget(reason string) {
	w.seen.Remove(reason)
}
