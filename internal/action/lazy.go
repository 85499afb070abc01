package action

import (
	"context"
	"io"
	"sync"
)

// Lazy defers building a runner until its first use, so collaborators such as a
// Kubernetes client are only created when a phase actually needs them.
func Lazy(build func() (Runner, error)) Runner {
	return &lazyRunner{build: build}
}

type lazyRunner struct {
	build  func() (Runner, error)
	once   sync.Once
	runner Runner
	err    error
}

func (l *lazyRunner) Run(ctx context.Context, spec Spec, stdout, stderr io.Writer) error {
	l.once.Do(func() {
		l.runner, l.err = l.build()
	})
	if l.err != nil {
		return l.err
	}
	return l.runner.Run(ctx, spec, stdout, stderr)
}
