package alerts

import (
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/template"
)

// Function is a function as declared in the deployment.
type Function struct {
	Name   string
	Alarms []Reference
}

// Registry is the deployment's function inventory and naming scheme.
type Registry interface {
	// Functions lists function names in declaration order.
	Functions() []string
	// Function returns the declaration of name.
	Function(name string) (Function, error)
	// LambdaLogicalID is the logical id of the function resource.
	LambdaLogicalID(functionName string) string
	// LogGroupLogicalID is the logical id of the function's log group resource.
	LogGroupLogicalID(functionName string) string
	// LogGroupName is the physical name of the function's log group.
	LogGroupName(functionName string) string
	// DeployedName is the physical name of the function.
	DeployedName(functionName string) string
	// StackName is the name of the deployment stack.
	StackName() string
}

// FunctionContext is the per-function view used while expanding alarms.
type FunctionContext struct {
	Name              string
	LogicalID         string
	LogGroupLogicalID string
	LogGroupName      string
	DeployedName      string
	Alarms            []Reference
}

func functionContext(registry Registry, name string) (FunctionContext, error) {
	fn, err := registry.Function(name)
	if err != nil {
		return FunctionContext{}, err
	}

	return FunctionContext{
		Name:              name,
		LogicalID:         registry.LambdaLogicalID(name),
		LogGroupLogicalID: registry.LogGroupLogicalID(name),
		LogGroupName:      registry.LogGroupName(name),
		DeployedName:      registry.DeployedName(name),
		Alarms:            fn.Alarms,
	}, nil
}

// Expander applies the global and per-function alarm sets to functions.
type Expander struct {
	cfg         *Config
	definitions DefinitionTable
	builder     *Builder
	global      []Definition
}

// NewExpander resolves the global alarm set of cfg.
func NewExpander(cfg *Config, definitions DefinitionTable, builder *Builder) (*Expander, error) {
	global, err := GlobalAlarms(cfg, definitions)
	if err != nil {
		return nil, err
	}

	return &Expander{
		cfg:         cfg,
		definitions: definitions,
		builder:     builder,
		global:      global,
	}, nil
}

// Expand builds the alarms of fn and merges them into doc. Disabled alarms are
// removed from doc instead.
func (e *Expander) Expand(fn FunctionContext, doc template.Document) (*template.Resources, error) {
	own, err := FunctionAlarms(Function{Name: fn.Name, Alarms: fn.Alarms}, e.cfg, e.definitions)
	if err != nil {
		return nil, err
	}

	alarms := make([]Definition, 0, len(e.global)+len(own))
	alarms = append(alarms, e.global...)
	alarms = append(alarms, own...)

	batch := template.NewResources()
	for _, alarm := range alarms {
		if alarm.NameTemplate == nil {
			alarm.NameTemplate = e.cfg.NameTemplate
		}
		if alarm.PrefixTemplate == nil {
			alarm.PrefixTemplate = e.cfg.PrefixTemplate
		}

		logicalID := AlarmLogicalID(alarm.Name, fn.Name)
		if !alarm.IsEnabled() {
			batch.Delete(logicalID)
			doc.Delete(logicalID)
			continue
		}

		resource, err := e.builder.Build(alarm, fn)
		if err != nil {
			return nil, err
		}
		if resource != nil {
			batch.Set(logicalID, *resource)
		}

		batch.Merge(e.builder.LogMetricFilters(alarm, fn))
	}

	doc.Merge(batch)
	return batch, nil
}
