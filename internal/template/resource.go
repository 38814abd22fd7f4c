// Package template models the CloudFormation resource declarations produced by the alerts compiler.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Resource types emitted or inspected by the compiler.
const (
	TypeAlarm          = "AWS::CloudWatch::Alarm"
	TypeCompositeAlarm = "AWS::CloudWatch::CompositeAlarm"
	TypeDashboard      = "AWS::CloudWatch::Dashboard"
	TypeTopic          = "AWS::SNS::Topic"
	TypeMetricFilter   = "AWS::Logs::MetricFilter"
)

// Ref is the CloudFormation Ref intrinsic function.
type Ref struct {
	Ref string `json:"Ref"`
}

// NewRef returns a Ref to the resource with the given logical name.
func NewRef(logicalName string) Ref {
	return Ref{Ref: logicalName}
}

// Resource is a single resource declaration keyed by logical name in a template.
// Resources built by the compiler hold one of the typed property structs of
// this package in Properties. Resources read from a template are kept verbatim
// and only inspected through AlarmName and Disabled.
type Resource struct {
	Type       string
	DependsOn  []string
	Properties any

	raw json.RawMessage
}

// AlarmProperties returns the properties of an AWS::CloudWatch::Alarm built by
// the compiler.
func (r Resource) AlarmProperties() (*AlarmProperties, bool) {
	p, ok := r.Properties.(*AlarmProperties)
	return p, ok && r.Type == TypeAlarm
}

// TopicProperties returns the properties of an AWS::SNS::Topic built by the
// compiler.
func (r Resource) TopicProperties() (*TopicProperties, bool) {
	p, ok := r.Properties.(*TopicProperties)
	return p, ok && r.Type == TypeTopic
}

// AlarmName returns the literal physical name of an AWS::CloudWatch::Alarm.
// The name is empty when unset or given as an intrinsic function. ok is false
// for other resource types.
func (r Resource) AlarmName() (name string, ok bool) {
	if r.Type != TypeAlarm {
		return "", false
	}

	if p, typed := r.AlarmProperties(); typed {
		return p.AlarmName, true
	}

	var view struct {
		Properties struct {
			AlarmName any `json:"AlarmName"`
		} `json:"Properties"`
	}
	if r.raw != nil && json.Unmarshal(r.raw, &view) == nil {
		name, _ = view.Properties.AlarmName.(string)
	}
	return name, true
}

// Disabled reports whether the resource is a topic explicitly marked as disabled.
func (r Resource) Disabled() bool {
	if r.Type != TypeTopic {
		return false
	}

	if p, typed := r.TopicProperties(); typed {
		return p.Enabled != nil && !*p.Enabled
	}

	var view struct {
		Properties struct {
			Enabled any `json:"enabled"`
		} `json:"Properties"`
	}
	if r.raw == nil || json.Unmarshal(r.raw, &view) != nil {
		return false
	}
	enabled, isBool := view.Properties.Enabled.(bool)
	return isBool && !enabled
}

// Decode unmarshals the resource's CloudFormation declaration into v.
func (r Resource) Decode(v any) error {
	b, err := r.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// MarshalJSON encodes the resource in CloudFormation form. Resources read from
// a template are written back byte for byte.
func (r Resource) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}

	out := struct {
		Type       string   `json:"Type"`
		DependsOn  []string `json:"DependsOn,omitempty"`
		Properties any      `json:"Properties,omitempty"`
	}{
		Type:       r.Type,
		DependsOn:  r.DependsOn,
		Properties: r.Properties,
	}

	return json.Marshal(out)
}

// UnmarshalJSON keeps the declaration verbatim. Only Type and DependsOn are
// read, and values of an unexpected shape are left out of the parsed view.
func (r *Resource) UnmarshalJSON(b []byte) error {
	var in struct {
		Type      json.RawMessage `json:"Type"`
		DependsOn json.RawMessage `json:"DependsOn"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return fmt.Errorf("cannot decode resource: %w", err)
	}

	r.Type = ""
	_ = json.Unmarshal(in.Type, &r.Type)
	r.Properties = nil
	r.DependsOn, _ = decodeDependsOn(in.DependsOn)
	r.raw = append(json.RawMessage(nil), b...)

	return nil
}

func decodeDependsOn(b json.RawMessage) ([]string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, nil
	}

	if b[0] == '"' {
		var single string
		if err := json.Unmarshal(b, &single); err != nil {
			return nil, err
		}
		return []string{single}, nil
	}

	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Dimension is a CloudWatch metric dimension. Value is either a literal string
// or an intrinsic function such as Ref.
type Dimension struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

// Metric identifies a CloudWatch metric inside a metric data query.
type Metric struct {
	Namespace  string      `json:"Namespace,omitempty"`
	MetricName string      `json:"MetricName"`
	Dimensions []Dimension `json:"Dimensions,omitempty"`
}

// MetricStat is the statistic half of a metric data query.
type MetricStat struct {
	Metric Metric `json:"Metric"`
	Period *int32 `json:"Period,omitempty"`
	Stat   string `json:"Stat,omitempty"`
}

// MetricDataQuery is one entry of an alarm's metric math Metrics list.
type MetricDataQuery struct {
	ID         string      `json:"Id"`
	Expression string      `json:"Expression,omitempty"`
	Label      string      `json:"Label,omitempty"`
	MetricStat *MetricStat `json:"MetricStat,omitempty"`
	ReturnData bool        `json:"ReturnData"`
}

// AlarmProperties are the properties of an AWS::CloudWatch::Alarm.
type AlarmProperties struct {
	AlarmName                        string            `json:"AlarmName,omitempty"`
	AlarmDescription                 string            `json:"AlarmDescription,omitempty"`
	ActionsEnabled                   *bool             `json:"ActionsEnabled,omitempty"`
	Namespace                        string            `json:"Namespace,omitempty"`
	MetricName                       string            `json:"MetricName,omitempty"`
	Threshold                        *float64          `json:"Threshold,omitempty"`
	Period                           *int32            `json:"Period,omitempty"`
	EvaluationPeriods                *int32            `json:"EvaluationPeriods,omitempty"`
	DatapointsToAlarm                *int32            `json:"DatapointsToAlarm,omitempty"`
	ComparisonOperator               string            `json:"ComparisonOperator,omitempty"`
	Statistic                        string            `json:"Statistic,omitempty"`
	ExtendedStatistic                string            `json:"ExtendedStatistic,omitempty"`
	EvaluateLowSampleCountPercentile string            `json:"EvaluateLowSampleCountPercentile,omitempty"`
	OKActions                        []any             `json:"OKActions"`
	AlarmActions                     []any             `json:"AlarmActions"`
	InsufficientDataActions          []any             `json:"InsufficientDataActions"`
	Dimensions                       []Dimension       `json:"Dimensions,omitempty"`
	TreatMissingData                 string            `json:"TreatMissingData,omitempty"`
	Metrics                          []MetricDataQuery `json:"Metrics,omitempty"`
	ThresholdMetricID                string            `json:"ThresholdMetricId,omitempty"`
}

// MarshalJSON always emits the three action lists, empty when unset.
func (p AlarmProperties) MarshalJSON() ([]byte, error) {
	type alias AlarmProperties
	a := alias(p)
	a.OKActions = orEmpty(a.OKActions)
	a.AlarmActions = orEmpty(a.AlarmActions)
	a.InsufficientDataActions = orEmpty(a.InsufficientDataActions)
	return json.Marshal(a)
}

// CompositeAlarmProperties are the properties of an AWS::CloudWatch::CompositeAlarm.
type CompositeAlarmProperties struct {
	AlarmName        string `json:"AlarmName"`
	AlarmDescription string `json:"AlarmDescription,omitempty"`
	ActionsEnabled   *bool  `json:"ActionsEnabled,omitempty"`
	AlarmRule        string `json:"AlarmRule"`
	AlarmActions     []any  `json:"AlarmActions"`
}

// MarshalJSON always emits AlarmActions, empty when unset.
func (p CompositeAlarmProperties) MarshalJSON() ([]byte, error) {
	type alias CompositeAlarmProperties
	a := alias(p)
	a.AlarmActions = orEmpty(a.AlarmActions)
	return json.Marshal(a)
}

// Subscription is an inline SNS topic subscription.
type Subscription struct {
	Protocol string `json:"Protocol"`
	Endpoint string `json:"Endpoint"`
}

// TopicProperties are the properties of an AWS::SNS::Topic.
type TopicProperties struct {
	TopicName    string         `json:"TopicName"`
	Subscription []Subscription `json:"Subscription,omitempty"`

	// Enabled is not an SNS property. Templates produced by other tooling set it
	// to false to keep a topic declared while excluding it from composite actions.
	Enabled *bool `json:"enabled,omitempty"`
}

// MetricTransformation maps log filter matches onto a metric value.
type MetricTransformation struct {
	MetricValue     string `json:"MetricValue"`
	MetricNamespace string `json:"MetricNamespace"`
	MetricName      string `json:"MetricName"`
}

// MetricFilterProperties are the properties of an AWS::Logs::MetricFilter.
type MetricFilterProperties struct {
	FilterPattern         string                 `json:"FilterPattern"`
	LogGroupName          string                 `json:"LogGroupName"`
	MetricTransformations []MetricTransformation `json:"MetricTransformations"`
}

// DashboardProperties are the properties of an AWS::CloudWatch::Dashboard.
type DashboardProperties struct {
	DashboardName string `json:"DashboardName"`
	DashboardBody string `json:"DashboardBody"`
}

func orEmpty(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}
