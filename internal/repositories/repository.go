package repositories

import "context"

// Repository groups the persistence interfaces of the service.
type Repository interface {
	User() UserRepository
	Progress() ProgressRepository
	QuestionBank() QuestionBankRepository

	// WithTransaction runs fn with repositories bound to one transaction.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager owns the repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
