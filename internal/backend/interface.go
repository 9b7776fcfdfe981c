package backend

import (
	"spendlog/internal/services"
	"spendlog/internal/storage"
)

// Type selects the datastore.
type Type string

const (
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case SQLite, Postgres:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs to assemble a backend.
type Config struct {
	Type Type

	SQLiteDBPath string
	DatabaseURL  string

	// Empty AMQPURL disables change-event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is an assembled backend: the repository and the services over it.
type Result struct {
	Repo       *storage.Repository
	Categories *services.CategoryService
	Expenses   *services.ExpenseService
	// Publishing reports whether change events are being sent to AMQP.
	Publishing bool
	Cleanup    CleanupFunc
}
