package mocks

import (
	"context"

	"flashai/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockErrorLogWriter is a mock type for the openrouter.ErrorLogWriter type
type MockErrorLogWriter struct {
	mock.Mock
}

// LogGenerationError provides a mock function with given fields: ctx, entry
func (_m *MockErrorLogWriter) LogGenerationError(ctx context.Context, entry models.GenerationErrorLog) error {
	ret := _m.Called(ctx, entry)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, models.GenerationErrorLog) error); ok {
		r0 = rf(ctx, entry)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockErrorLogWriter creates a new instance of MockErrorLogWriter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockErrorLogWriter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockErrorLogWriter {
	m := &MockErrorLogWriter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
