package testing

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/onboard/internal/action"
)

// MockInvoker is a testify mock of the action invoker.
type MockInvoker struct {
	mock.Mock
}

// Run records the call and returns the configured result.
func (m *MockInvoker) Run(ctx context.Context, spec action.Spec, timeout time.Duration, dryRun bool) action.Result {
	args := m.Called(ctx, spec, timeout, dryRun)
	return args.Get(0).(action.Result)
}

// SpecNamed matches an action.Spec argument by name.
func SpecNamed(name string) interface{} {
	return mock.MatchedBy(func(s action.Spec) bool { return s.Name == name })
}
