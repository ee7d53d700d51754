package mocks

import (
	"context"

	"flashai/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockIdentityFetcher is a mock type for the refresher.IdentityFetcher type
type MockIdentityFetcher struct {
	mock.Mock
}

// FetchIdentity provides a mock function with given fields: ctx, token
func (_m *MockIdentityFetcher) FetchIdentity(ctx context.Context, token string) (models.Identity, error) {
	ret := _m.Called(ctx, token)

	var r0 models.Identity
	if rf, ok := ret.Get(0).(func(context.Context, string) models.Identity); ok {
		r0 = rf(ctx, token)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(models.Identity)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, token)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockIdentityFetcher creates a new instance of MockIdentityFetcher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockIdentityFetcher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockIdentityFetcher {
	m := &MockIdentityFetcher{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// MockTokenMinter is a mock type for the refresher.TokenMinter type
type MockTokenMinter struct {
	mock.Mock
}

// MintToken provides a mock function with given fields: ctx, token, identity
func (_m *MockTokenMinter) MintToken(ctx context.Context, token string, identity models.Identity) (string, error) {
	ret := _m.Called(ctx, token, identity)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, models.Identity) string); ok {
		r0 = rf(ctx, token, identity)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(string)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, models.Identity) error); ok {
		r1 = rf(ctx, token, identity)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockTokenMinter creates a new instance of MockTokenMinter. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockTokenMinter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTokenMinter {
	m := &MockTokenMinter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
