//go:build cgo

package database

// go-libsql is cgo-only; the libsql driver is registered only in cgo builds.
import _ "github.com/tursodatabase/go-libsql"
