package template

import "fmt"

// ExternalStack collects alert resources for a separate stack deployed next to
// the service stack, so alerts can change without redeploying functions.
type ExternalStack struct {
	StackName string

	resources *Resources
}

// NewExternalStack returns an empty external stack named after the service stack.
func NewExternalStack(serviceStack, suffix string) *ExternalStack {
	if suffix == "" {
		suffix = "alerts"
	}

	return &ExternalStack{
		StackName: serviceStack + "-" + suffix,
		resources: NewResources(),
	}
}

func (s *ExternalStack) Get(logicalName string) (Resource, bool) {
	return s.resources.Get(logicalName)
}

func (s *ExternalStack) Merge(rs *Resources) {
	s.resources.Merge(rs)
}

func (s *ExternalStack) Delete(logicalName string) {
	s.resources.Delete(logicalName)
}

func (s *ExternalStack) Names() []string {
	return s.resources.Names()
}

// Template renders the external stack body.
func (s *ExternalStack) Template() *Template {
	return &Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              fmt.Sprintf("Alerts for stack %s", s.StackName),
		Resources:                s.resources,
	}
}
