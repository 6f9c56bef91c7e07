package repositories

import "context"

// Repository aggregates all repository interfaces
type Repository interface {
	// Assessment domain
	Assessment() AssessmentRepository
	Question() QuestionRepository

	// Attempt domain
	Attempt() AttemptRepository
	Answer() AnswerRepository

	// Course membership and scheduling
	Enrollment() EnrollmentRepository
	Schedule() ScheduleRepository

	// Secure file owners
	Material() MaterialRepository

	// WithTransaction runs fn against repositories bound to one transaction.
	// Returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
