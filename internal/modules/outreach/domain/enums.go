//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// AccountStatus is the availability of an outbound account
// ENUM(ready,busy,banned,cooldown)
type AccountStatus string
