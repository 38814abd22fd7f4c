package alerts

import (
	"fmt"

	"github.com/stretchr/testify/mock"
)

// DashboardRendererMock is a mock implementation of the DashboardRenderer interface.
type DashboardRendererMock struct {
	mock.Mock
}

func (m *DashboardRendererMock) Render(service, stage, region string, functions []string, tmpl string) (string, error) {
	args := m.Called(service, stage, region, functions, tmpl)
	return args.String(0), args.Error(1)
}

// fakeRegistry names functions the way a serverless service does.
type fakeRegistry struct {
	service   string
	stage     string
	order     []string
	functions map[string]Function
}

func newFakeRegistry(functions ...Function) *fakeRegistry {
	r := &fakeRegistry{
		service:   "orders",
		stage:     "dev",
		functions: make(map[string]Function),
	}
	for _, fn := range functions {
		r.order = append(r.order, fn.Name)
		r.functions[fn.Name] = fn
	}
	return r
}

func (r *fakeRegistry) Functions() []string {
	return r.order
}

func (r *fakeRegistry) Function(name string) (Function, error) {
	fn, ok := r.functions[name]
	if !ok {
		return Function{}, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return fn, nil
}

func (r *fakeRegistry) LambdaLogicalID(functionName string) string {
	return NormalizeName(functionName) + "LambdaFunction"
}

func (r *fakeRegistry) LogGroupLogicalID(functionName string) string {
	return NormalizeName(functionName) + "LogGroup"
}

func (r *fakeRegistry) LogGroupName(functionName string) string {
	return "/aws/lambda/" + r.DeployedName(functionName)
}

func (r *fakeRegistry) DeployedName(functionName string) string {
	return r.StackName() + "-" + functionName
}

func (r *fakeRegistry) StackName() string {
	return r.service + "-" + r.stage
}
