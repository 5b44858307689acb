// Package mocks provides test doubles for the roadsafety client.
package mocks

import (
	"context"

	roadsafety "github.com/sells-group/roadsafety-cli/pkg/roadsafety"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Extract provides a mock function with given fields: ctx, filename, pdf
func (_m *MockClient) Extract(ctx context.Context, filename string, pdf []byte) (*roadsafety.ExtractResponse, error) {
	ret := _m.Called(ctx, filename, pdf)

	if len(ret) == 0 {
		panic("no return value specified for Extract")
	}

	var r0 *roadsafety.ExtractResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, []byte) (*roadsafety.ExtractResponse, error)); ok {
		return rf(ctx, filename, pdf)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, []byte) *roadsafety.ExtractResponse); ok {
		r0 = rf(ctx, filename, pdf)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*roadsafety.ExtractResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, []byte) error); ok {
		r1 = rf(ctx, filename, pdf)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ProcessAll provides a mock function with given fields: ctx, batch
func (_m *MockClient) ProcessAll(ctx context.Context, batch []roadsafety.EstimateRequest) (*roadsafety.EstimateResponse, error) {
	ret := _m.Called(ctx, batch)

	if len(ret) == 0 {
		panic("no return value specified for ProcessAll")
	}

	var r0 *roadsafety.EstimateResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, []roadsafety.EstimateRequest) (*roadsafety.EstimateResponse, error)); ok {
		return rf(ctx, batch)
	}
	if rf, ok := ret.Get(0).(func(context.Context, []roadsafety.EstimateRequest) *roadsafety.EstimateResponse); ok {
		r0 = rf(ctx, batch)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*roadsafety.EstimateResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, []roadsafety.EstimateRequest) error); ok {
		r1 = rf(ctx, batch)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Ask provides a mock function with given fields: ctx, question, askContext
func (_m *MockClient) Ask(ctx context.Context, question string, askContext any) (*roadsafety.AskResponse, error) {
	ret := _m.Called(ctx, question, askContext)

	if len(ret) == 0 {
		panic("no return value specified for Ask")
	}

	var r0 *roadsafety.AskResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, any) (*roadsafety.AskResponse, error)); ok {
		return rf(ctx, question, askContext)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, any) *roadsafety.AskResponse); ok {
		r0 = rf(ctx, question, askContext)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*roadsafety.AskResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, any) error); ok {
		r1 = rf(ctx, question, askContext)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
