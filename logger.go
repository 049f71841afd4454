package art

import (
	"sync"

	"go.uber.org/zap"
)

var (
	loggerOnce sync.Once
	pkgLogger  *zap.Logger
)

// logger returns the package-wide diagnostic logger. It is built
// lazily so that importing this package never pays for a logger
// nobody ends up using, matching the lazy-root-allocation discipline
// the rest of this package applies to the trie itself.
func logger() *zap.Logger {
	loggerOnce.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		pkgLogger = l
	})
	return pkgLogger
}

// SetLogger overrides the package-wide diagnostic logger. Intended for
// callers that want arena diagnostics folded into their own
// structured-logging pipeline instead of a standalone production
// logger.
func SetLogger(l *zap.Logger) {
	loggerOnce.Do(func() {})
	pkgLogger = l
}
