//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// WorkerStatus is the listening state of a worker session
// ENUM(online,offline)
type WorkerStatus string
