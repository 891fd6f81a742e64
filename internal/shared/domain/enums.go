//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// AppEnv represents the application environment
// ENUM(local,production,development,testing)
type AppEnv string

// DatabaseDriver selects the persistence backend
// ENUM(postgres,sqlite,libsql,mysql)
type DatabaseDriver string
