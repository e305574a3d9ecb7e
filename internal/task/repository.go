package task

import "context"

// Repository is the only path to the task table. Implementations return
// cerr errors: InvalidArgument for rejected input, NotFound for unknown ids
// and Internal for everything the store itself failed at.
type Repository interface {
	List(ctx context.Context) ([]*Task, error)
	Create(ctx context.Context, p CreateParams) (*Task, error)
	SetStatus(ctx context.Context, id string, status Status) (*Task, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close()
}
