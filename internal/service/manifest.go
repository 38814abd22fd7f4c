// Package service provides the function inventories the alerts compiler runs over.
package service

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/alerts"
)

// ErrMissingService indicates a manifest without a service name.
var ErrMissingService = errors.New("service manifest has no service name")

const (
	defaultStage  = "dev"
	defaultRegion = "us-east-1"
)

// Provider is the provider section of a service manifest.
type Provider struct {
	Name      string `yaml:"name"`
	Stage     string `yaml:"stage"`
	Region    string `yaml:"region"`
	StackName string `yaml:"stackName"`
}

// FunctionDecl is one function of a service manifest.
type FunctionDecl struct {
	Key     string             `yaml:"-"`
	Name    string             `yaml:"name"`
	Handler string             `yaml:"handler"`
	Alarms  []alerts.Reference `yaml:"alarms"`
}

// Functions lists function declarations in manifest order.
type Functions []FunctionDecl

// UnmarshalYAML decodes the functions mapping keeping declaration order.
func (f *Functions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: functions must be an object", node.Line)
	}

	out := make(Functions, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var decl FunctionDecl
		if err := node.Content[i+1].Decode(&decl); err != nil {
			return fmt.Errorf("cannot decode function %s: %w", node.Content[i].Value, err)
		}
		decl.Key = node.Content[i].Value
		out = append(out, decl)
	}

	*f = out
	return nil
}

// Manifest is a serverless style service manifest.
type Manifest struct {
	Service  string    `yaml:"service"`
	Provider Provider  `yaml:"provider"`
	Declared Functions `yaml:"functions"`
	Custom   struct {
		Alerts *alerts.Config `yaml:"alerts"`
	} `yaml:"custom"`
}

// ParseManifest decodes a manifest. Non-empty stage and region override the
// manifest's provider settings.
func ParseManifest(b []byte, stage, region string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("cannot parse service manifest: %w", err)
	}

	if m.Service == "" {
		return nil, ErrMissingService
	}

	if stage != "" {
		m.Provider.Stage = stage
	}
	if m.Provider.Stage == "" {
		m.Provider.Stage = defaultStage
	}
	if region != "" {
		m.Provider.Region = region
	}
	if m.Provider.Region == "" {
		m.Provider.Region = defaultRegion
	}

	return &m, nil
}

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path, stage, region string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read service manifest: %w", err)
	}
	return ParseManifest(b, stage, region)
}

// Alerts returns the alerts config of the manifest, nil when absent.
func (m *Manifest) Alerts() *alerts.Config {
	return m.Custom.Alerts
}

// Options returns the compile options of the deployment.
func (m *Manifest) Options() alerts.Options {
	return alerts.Options{
		Service: m.Service,
		Stage:   m.Provider.Stage,
		Region:  m.Provider.Region,
	}
}

func (m *Manifest) Functions() []string {
	names := make([]string, 0, len(m.Declared))
	for _, fn := range m.Declared {
		names = append(names, fn.Key)
	}
	return names
}

func (m *Manifest) Function(name string) (alerts.Function, error) {
	decl, ok := m.lookup(name)
	if !ok {
		return alerts.Function{}, fmt.Errorf("%w: %s", alerts.ErrUnknownFunction, name)
	}
	return alerts.Function{Name: name, Alarms: decl.Alarms}, nil
}

func (m *Manifest) LambdaLogicalID(functionName string) string {
	return alerts.NormalizeName(functionName) + "LambdaFunction"
}

func (m *Manifest) LogGroupLogicalID(functionName string) string {
	return alerts.NormalizeName(functionName) + "LogGroup"
}

func (m *Manifest) LogGroupName(functionName string) string {
	return "/aws/lambda/" + m.DeployedName(functionName)
}

// DeployedName is the declared function name, or {service}-{stage}-{key}.
func (m *Manifest) DeployedName(functionName string) string {
	if decl, ok := m.lookup(functionName); ok && decl.Name != "" {
		return decl.Name
	}
	return m.Service + "-" + m.Provider.Stage + "-" + functionName
}

func (m *Manifest) StackName() string {
	if m.Provider.StackName != "" {
		return m.Provider.StackName
	}
	return m.Service + "-" + m.Provider.Stage
}

func (m *Manifest) lookup(name string) (FunctionDecl, bool) {
	for _, fn := range m.Declared {
		if fn.Key == name {
			return fn, true
		}
	}
	return FunctionDecl{}, false
}
