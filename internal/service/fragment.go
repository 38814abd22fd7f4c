package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/alerts"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/template"
)

const (
	typeFunction           = "AWS::Lambda::Function"
	typeServerlessFunction = "AWS::Serverless::Function"
	typeLogGroup           = "AWS::Logs::LogGroup"

	alertsMetadataKey = "Alerts"
)

type functionDecl struct {
	Properties struct {
		FunctionName any `json:"FunctionName"`
	} `json:"Properties"`
	Metadata struct {
		Alarms json.RawMessage `json:"Alarms"`
	} `json:"Metadata"`
}

// Fragment exposes the functions declared in a CloudFormation template. Each
// function resource lists its alarms under Metadata.Alarms and the template
// carries the alerts config under Metadata.Alerts.
type Fragment struct {
	tmpl      *template.Template
	opts      alerts.Options
	stackName string
}

// NewFragment wraps tmpl. An empty stackName defaults to {service}-{stage}.
func NewFragment(tmpl *template.Template, opts alerts.Options, stackName string) *Fragment {
	if tmpl.Resources == nil {
		tmpl.Resources = template.NewResources()
	}
	if stackName == "" {
		stackName = opts.Service + "-" + opts.Stage
	}

	return &Fragment{
		tmpl:      tmpl,
		opts:      opts,
		stackName: stackName,
	}
}

// Alerts decodes the alerts config from the template metadata, nil when absent.
func (f *Fragment) Alerts() (*alerts.Config, error) {
	raw, ok := f.tmpl.Metadata[alertsMetadataKey]
	if !ok {
		return nil, nil
	}

	b, err := compact(raw)
	if err != nil {
		return nil, fmt.Errorf("cannot parse alerts config: %w", err)
	}
	return alerts.ParseConfig(b)
}

func (f *Fragment) Options() alerts.Options {
	return f.opts
}

func (f *Fragment) Functions() []string {
	var names []string
	for _, name := range f.tmpl.Resources.Names() {
		res, _ := f.tmpl.Resources.Get(name)
		if isFunction(res.Type) {
			names = append(names, name)
		}
	}
	return names
}

func (f *Fragment) Function(name string) (alerts.Function, error) {
	decl, err := f.decl(name)
	if err != nil {
		return alerts.Function{}, err
	}

	fn := alerts.Function{Name: name}
	if len(decl.Metadata.Alarms) > 0 {
		b, err := compact(decl.Metadata.Alarms)
		if err != nil {
			return alerts.Function{}, fmt.Errorf("cannot decode alarms of %s: %w", name, err)
		}
		if err := yaml.Unmarshal(b, &fn.Alarms); err != nil {
			return alerts.Function{}, fmt.Errorf("cannot decode alarms of %s: %w", name, err)
		}
	}
	return fn, nil
}

func (f *Fragment) LambdaLogicalID(functionName string) string {
	return functionName
}

// LogGroupLogicalID returns {function}LogGroup when the template declares it,
// and an empty string otherwise.
func (f *Fragment) LogGroupLogicalID(functionName string) string {
	id := functionName + "LogGroup"
	if res, ok := f.tmpl.Resources.Get(id); ok && res.Type == typeLogGroup {
		return id
	}
	return ""
}

func (f *Fragment) LogGroupName(functionName string) string {
	return "/aws/lambda/" + f.DeployedName(functionName)
}

// DeployedName is the literal FunctionName property, or the logical id when
// the name is left to CloudFormation.
func (f *Fragment) DeployedName(functionName string) string {
	decl, err := f.decl(functionName)
	if err != nil {
		return functionName
	}
	if name, ok := decl.Properties.FunctionName.(string); ok && name != "" {
		return name
	}
	return functionName
}

func (f *Fragment) StackName() string {
	return f.stackName
}

func (f *Fragment) decl(name string) (functionDecl, error) {
	res, ok := f.tmpl.Resources.Get(name)
	if !ok || !isFunction(res.Type) {
		return functionDecl{}, fmt.Errorf("%w: %s", alerts.ErrUnknownFunction, name)
	}

	var decl functionDecl
	if err := res.Decode(&decl); err != nil {
		return functionDecl{}, fmt.Errorf("cannot decode function %s: %w", name, err)
	}
	return decl, nil
}

// compact strips the layout whitespace of JSON so the YAML decoder reads it as
// a single flow node.
func compact(raw json.RawMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isFunction(typ string) bool {
	return slices.Contains([]string{typeFunction, typeServerlessFunction}, typ)
}
