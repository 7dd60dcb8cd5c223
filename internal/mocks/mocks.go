// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/droidpilot/internal/agent"
	"github.com/xkilldash9x/droidpilot/internal/config"
	"github.com/xkilldash9x/droidpilot/internal/llmclient"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

var _ config.Interface = (*MockConfig)(nil)

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Device() config.DeviceConfig {
	args := m.Called()
	return args.Get(0).(config.DeviceConfig)
}

func (m *MockConfig) Agent() config.AgentConfig {
	args := m.Called()
	return args.Get(0).(config.AgentConfig)
}

// --- Setters ---

func (m *MockConfig) SetAgentMaxSteps(n int)               { m.Called(n) }
func (m *MockConfig) SetAgentTapPolicy(p config.TapPolicy) { m.Called(p) }
func (m *MockConfig) SetDeviceSerial(s string)             { m.Called(s) }
func (m *MockConfig) SetLLMProvider(p config.LLMProvider)  { m.Called(p) }
func (m *MockConfig) SetLLMModel(s string)                 { m.Called(s) }

// -- Device Mock --

// MockTransport mocks device.Transport.
type MockTransport struct {
	mock.Mock
}

// Execute records the adb arguments as a single []string.
func (m *MockTransport) Execute(ctx context.Context, args ...string) string {
	ret := m.Called(ctx, args)
	return ret.String(0)
}

// -- LLM Mock --

// MockLLMClient mocks llmclient.Client.
type MockLLMClient struct {
	mock.Mock
}

var _ llmclient.Client = (*MockLLMClient)(nil)

func (m *MockLLMClient) Generate(ctx context.Context, req llmclient.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// -- Cycle stage mocks --

// MockObserver mocks agent.Observer.
type MockObserver struct {
	mock.Mock
}

var _ agent.Observer = (*MockObserver)(nil)

func (m *MockObserver) Capture(ctx context.Context) screen.Description {
	args := m.Called(ctx)
	return args.Get(0).(screen.Description)
}

// MockDecider mocks agent.Decider.
type MockDecider struct {
	mock.Mock
}

var _ agent.Decider = (*MockDecider)(nil)

func (m *MockDecider) Decide(ctx context.Context, goal string, desc screen.Description) (agent.Action, error) {
	args := m.Called(ctx, goal, desc)
	var action agent.Action
	if a := args.Get(0); a != nil {
		action = a.(agent.Action)
	}
	return action, args.Error(1)
}

// MockActor mocks agent.Actor.
type MockActor struct {
	mock.Mock
}

var _ agent.Actor = (*MockActor)(nil)

func (m *MockActor) Execute(ctx context.Context, action agent.Action) (agent.Signal, error) {
	args := m.Called(ctx, action)
	return args.Get(0).(agent.Signal), args.Error(1)
}
