package alerts

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"gopkg.in/yaml.v3"
)

// AlarmType selects the shape of the resource built for an alarm.
type AlarmType string

const (
	TypeStatic           AlarmType = "static"
	TypeAnomalyDetection AlarmType = "anomalyDetection"
	TypeSuccessRate      AlarmType = "successRate"
	TypeComposite        AlarmType = "composite"
)

// Dimension is a user declared metric dimension. Value is a literal or an
// intrinsic function object.
type Dimension struct {
	Name  string `yaml:"Name"`
	Value any    `yaml:"Value"`
}

// Definition is a reusable alarm template. Once resolved against a reference
// it also describes one concrete alarm. Unset optional fields are nil or empty
// so that merging can tell them apart from explicit values.
type Definition struct {
	Name                             string                   `yaml:"name"`
	Description                      string                   `yaml:"description"`
	Enabled                          *bool                    `yaml:"enabled"`
	Type                             AlarmType                `yaml:"type"`
	Namespace                        string                   `yaml:"namespace"`
	Metric                           string                   `yaml:"metric"`
	Pattern                          string                   `yaml:"pattern"`
	Threshold                        *float64                 `yaml:"threshold"`
	Statistic                        string                   `yaml:"statistic"`
	Period                           *int32                   `yaml:"period"`
	EvaluationPeriods                *int32                   `yaml:"evaluationPeriods"`
	DatapointsToAlarm                *int32                   `yaml:"datapointsToAlarm"`
	ComparisonOperator               types.ComparisonOperator `yaml:"comparisonOperator"`
	TreatMissingData                 string                   `yaml:"treatMissingData"`
	EvaluateLowSampleCountPercentile string                   `yaml:"evaluateLowSampleCountPercentile"`
	ActionsEnabled                   *bool                    `yaml:"actionsEnabled"`
	Dimensions                       []Dimension              `yaml:"dimensions"`
	OmitDefaultDimension             *bool                    `yaml:"omitDefaultDimension"`
	OKActions                        []string                 `yaml:"okActions"`
	AlarmActions                     []string                 `yaml:"alarmActions"`
	InsufficientDataActions          []string                 `yaml:"insufficientDataActions"`
	NameTemplate                     *string                  `yaml:"nameTemplate"`
	PrefixTemplate                   *string                  `yaml:"prefixTemplate"`
	AlarmsToInclude                  []string                 `yaml:"alarmsToInclude"`
	AlarmsActions                    []string                 `yaml:"alarmsActions"`

	// cleared lists the clearable keys explicitly set to "".
	cleared []string
}

// clearableKeys are the string fields an explicit "" resets on merge instead
// of leaving the inherited value in place.
var clearableKeys = []string{
	"description",
	"namespace",
	"metric",
	"pattern",
	"statistic",
	"comparisonOperator",
	"treatMissingData",
	"evaluateLowSampleCountPercentile",
}

// UnmarshalYAML decodes a definition and records which clearable keys were
// given an explicit empty string.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	type plain Definition
	if err := node.Decode((*plain)(d)); err != nil {
		return err
	}

	d.cleared = nil
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode || value.ShortTag() != "!!str" || value.Value != "" {
			continue
		}
		if slices.Contains(clearableKeys, key.Value) {
			d.cleared = append(d.cleared, key.Value)
		}
	}
	return nil
}

// IsEnabled reports whether the definition is enabled. Unset means enabled.
func (d Definition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Merge returns d overridden field by field with every field set in over.
// Lists are replaced as a whole. A string field over cleared with an explicit
// "" is reset.
func (d Definition) Merge(over Definition) Definition {
	cleared := func(key string) bool {
		return slices.Contains(over.cleared, key)
	}

	return Definition{
		Name:                             pick(d.Name, over.Name),
		Description:                      pickString(d.Description, over.Description, cleared("description")),
		Enabled:                          pick(d.Enabled, over.Enabled),
		Type:                             pick(d.Type, over.Type),
		Namespace:                        pickString(d.Namespace, over.Namespace, cleared("namespace")),
		Metric:                           pickString(d.Metric, over.Metric, cleared("metric")),
		Pattern:                          pickString(d.Pattern, over.Pattern, cleared("pattern")),
		Threshold:                        pick(d.Threshold, over.Threshold),
		Statistic:                        pickString(d.Statistic, over.Statistic, cleared("statistic")),
		Period:                           pick(d.Period, over.Period),
		EvaluationPeriods:                pick(d.EvaluationPeriods, over.EvaluationPeriods),
		DatapointsToAlarm:                pick(d.DatapointsToAlarm, over.DatapointsToAlarm),
		ComparisonOperator:               pickString(d.ComparisonOperator, over.ComparisonOperator, cleared("comparisonOperator")),
		TreatMissingData:                 pickString(d.TreatMissingData, over.TreatMissingData, cleared("treatMissingData")),
		EvaluateLowSampleCountPercentile: pickString(d.EvaluateLowSampleCountPercentile, over.EvaluateLowSampleCountPercentile, cleared("evaluateLowSampleCountPercentile")),
		ActionsEnabled:                   pick(d.ActionsEnabled, over.ActionsEnabled),
		Dimensions:                       pickList(d.Dimensions, over.Dimensions),
		OmitDefaultDimension:             pick(d.OmitDefaultDimension, over.OmitDefaultDimension),
		OKActions:                        pickList(d.OKActions, over.OKActions),
		AlarmActions:                     pickList(d.AlarmActions, over.AlarmActions),
		InsufficientDataActions:          pickList(d.InsufficientDataActions, over.InsufficientDataActions),
		NameTemplate:                     pick(d.NameTemplate, over.NameTemplate),
		PrefixTemplate:                   pick(d.PrefixTemplate, over.PrefixTemplate),
		AlarmsToInclude:                  pickList(d.AlarmsToInclude, over.AlarmsToInclude),
		AlarmsActions:                    pickList(d.AlarmsActions, over.AlarmsActions),
	}
}

func pick[T comparable](base, over T) T {
	var zero T
	if over != zero {
		return over
	}
	return base
}

func pickString[T ~string](base, over T, cleared bool) T {
	if cleared {
		return over
	}
	return pick(base, over)
}

func pickList[T any](base, over []T) []T {
	if over != nil {
		return over
	}
	return base
}

// DefinitionTable maps definition names to definitions.
type DefinitionTable map[string]Definition

// Names returns the definition names in sorted order.
func (t DefinitionTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MergeDefinitions merges user definitions over the built-ins. User fields win.
func MergeDefinitions(builtins, user DefinitionTable) DefinitionTable {
	out := make(DefinitionTable, len(builtins)+len(user))
	for name, def := range builtins {
		out[name] = def
	}

	for name, def := range user {
		if base, ok := out[name]; ok {
			out[name] = base.Merge(def)
			continue
		}
		out[name] = def
	}

	return out
}

// Reference attaches an alarm to a function or to every function. It is either
// a bare definition name or an inline, possibly partial, definition.
type Reference struct {
	Name   string
	Inline *Definition
}

// NamedReference references the definition called name.
func NamedReference(name string) Reference {
	return Reference{Name: name}
}

// InlineReference declares an alarm inline. def.Name selects the definition it
// extends, if any.
func InlineReference(def Definition) Reference {
	return Reference{Name: def.Name, Inline: &def}
}

// UnmarshalYAML decodes either a scalar definition name or an inline definition.
func (r *Reference) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		*r = NamedReference(name)
		return nil
	case yaml.MappingNode:
		var def Definition
		if err := node.Decode(&def); err != nil {
			return err
		}
		*r = InlineReference(def)
		return nil
	default:
		return fmt.Errorf("line %d: alarm reference must be a name or an object", node.Line)
	}
}

func referenceDefaults() Definition {
	enabled := true
	return Definition{Enabled: &enabled, Type: TypeStatic}
}

// ResolveAlarms resolves references against the definition table, preserving
// order and duplicates.
func ResolveAlarms(refs []Reference, definitions DefinitionTable) ([]Definition, error) {
	alarms := make([]Definition, 0, len(refs))

	for _, ref := range refs {
		if ref.Inline == nil {
			def, ok := definitions[ref.Name]
			if !ok {
				return nil, &Error{Alarm: ref.Name, Err: ErrUnknownDefinition}
			}

			alarm := referenceDefaults().Merge(def)
			alarm.Name = ref.Name
			alarms = append(alarms, alarm)
			continue
		}

		alarm := referenceDefaults()
		if def, ok := definitions[ref.Inline.Name]; ok {
			alarm = alarm.Merge(def)
		}
		alarms = append(alarms, alarm.Merge(*ref.Inline))
	}

	return alarms, nil
}

// GlobalAlarms resolves the alarms attached to every function: the union of
// the alarms, global and function lists of cfg.
func GlobalAlarms(cfg *Config, definitions DefinitionTable) ([]Definition, error) {
	if cfg == nil {
		return nil, ErrMissingConfig
	}
	if definitions == nil {
		return nil, ErrMissingDefinitions
	}

	return ResolveAlarms(union(cfg.Alarms, cfg.Global, cfg.Function), definitions)
}

// FunctionAlarms resolves the alarms attached to a single function.
func FunctionAlarms(fn Function, cfg *Config, definitions DefinitionTable) ([]Definition, error) {
	if cfg == nil {
		return nil, ErrMissingConfig
	}
	if definitions == nil {
		return nil, ErrMissingDefinitions
	}

	alarms, err := ResolveAlarms(fn.Alarms, definitions)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Function = fn.Name
		}
		return nil, err
	}
	return alarms, nil
}

// union concatenates lists dropping repeated bare names. Inline references are
// always kept.
func union(lists ...[]Reference) []Reference {
	var out []Reference
	seen := make(map[string]bool)

	for _, list := range lists {
		for _, ref := range list {
			if ref.Inline == nil {
				if seen[ref.Name] {
					continue
				}
				seen[ref.Name] = true
			}
			out = append(out, ref)
		}
	}

	return out
}
