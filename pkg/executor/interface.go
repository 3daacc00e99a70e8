package executor

import "context"

// Executor runs external tools. Output is stdout; failures carry stderr.
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (string, error)
	ExecuteInDir(ctx context.Context, dir, name string, args ...string) (string, error)
}
