// Package version хранит информацию о сборке, заполняемую через -ldflags:
//
//	-X .../internal/version.version=v1.2.3
//	-X .../internal/version.commit=<sha>
//	-X .../internal/version.date=<iso8601>
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

// String возвращает строку для стартового лога.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}
