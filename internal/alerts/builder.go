package alerts

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/template"
)

const (
	defaultTreatMissingData = "missing"
	defaultAnomalyBandWidth = 2

	functionNameDimension = "FunctionName"
)

// Builder turns resolved alarms into CloudFormation alarm resources.
type Builder struct {
	topics    *ActionTopics
	stackName string
	external  bool
}

// NewBuilder returns a Builder resolving alarm actions against topics.
func NewBuilder(topics *ActionTopics, stackName string) *Builder {
	if topics == nil {
		topics = newActionTopics()
	}

	return &Builder{
		topics:    topics,
		stackName: stackName,
	}
}

// External makes the builder emit resources for a stack other than the one
// holding the functions: dimensions carry deployed function names instead of
// Refs, and metric filters drop their DependsOn on the log group.
func (b *Builder) External() *Builder {
	return &Builder{
		topics:    b.topics,
		stackName: b.stackName,
		external:  true,
	}
}

// Build returns the alarm resource of alarm on fn. It returns nil when fn has
// no logical id.
func (b *Builder) Build(alarm Definition, fn FunctionContext) (*template.Resource, error) {
	if fn.LogicalID == "" {
		return nil, nil
	}

	functionRef := fn.LogicalID
	fail := func(err error) error {
		return &Error{Alarm: alarm.Name, Function: fn.Name, Err: err}
	}

	okActions, err := b.actions(SeverityOK, alarm.OKActions)
	if err != nil {
		return nil, fail(err)
	}
	alarmActions, err := b.actions(SeverityAlarm, alarm.AlarmActions)
	if err != nil {
		return nil, fail(err)
	}
	insufficientDataActions, err := b.actions(SeverityInsufficientData, alarm.InsufficientDataActions)
	if err != nil {
		return nil, fail(err)
	}

	if op := alarm.ComparisonOperator; op != "" && !slices.Contains(op.Values(), op) {
		return nil, fail(fmt.Errorf("%w: %s", ErrInvalidComparisonOperator, op))
	}

	namespace := alarm.Namespace
	metricID := alarm.Metric
	dimensions := functionDimensions(alarm.Dimensions, b.functionValue(fn), aws.ToBool(alarm.OmitDefaultDimension))
	if alarm.Pattern != "" {
		namespace = b.stackName
		metricID = PatternMetricName(alarm.Metric, functionRef)
		dimensions = nil
	}

	treatMissingData := alarm.TreatMissingData
	if treatMissingData == "" {
		treatMissingData = defaultTreatMissingData
	}

	props := &template.AlarmProperties{
		ActionsEnabled:          alarm.ActionsEnabled,
		AlarmDescription:        alarm.Description,
		EvaluationPeriods:       alarm.EvaluationPeriods,
		DatapointsToAlarm:       alarm.DatapointsToAlarm,
		ComparisonOperator:      string(alarm.ComparisonOperator),
		TreatMissingData:        treatMissingData,
		OKActions:               okActions,
		AlarmActions:            alarmActions,
		InsufficientDataActions: insufficientDataActions,
	}

	switch alarm.Type {
	case TypeStatic:
		props.Namespace = namespace
		props.MetricName = metricID
		props.Threshold = alarm.Threshold
		props.Period = alarm.Period
		props.Dimensions = dimensions

		if isStandardStatistic(alarm.Statistic) {
			props.Statistic = alarm.Statistic
		} else {
			props.ExtendedStatistic = alarm.Statistic
			props.EvaluateLowSampleCountPercentile = alarm.EvaluateLowSampleCountPercentile
		}
	case TypeAnomalyDetection:
		props.Metrics = anomalyDetectionMetrics(alarm, namespace, metricID, dimensions)
		props.ThresholdMetricID = "ad1"
	case TypeSuccessRate:
		if namespace == "" {
			namespace = lambdaNamespace
		}
		props.Metrics = successRateMetrics(alarm, namespace, dimensions)
		props.Threshold = alarm.Threshold
	default:
		return nil, fail(fmt.Errorf("%w: got %q", ErrUnsupportedAlarmType, alarm.Type))
	}

	vars := AlarmNameVars{
		FunctionName:      fn.Name,
		FunctionLogicalID: functionRef,
		MetricName:        alarm.Metric,
		MetricID:          metricID,
		StackName:         b.stackName,
	}

	switch {
	case alarm.NameTemplate != nil:
		props.AlarmName = RenderAlarmName(*alarm.NameTemplate, alarm.PrefixTemplate, vars)
	case alarm.PrefixTemplate != nil:
		if alarm.Name != "" {
			vars.MetricName = alarm.Name
		}
		props.AlarmName = RenderAlarmName(defaultNameTemplate, alarm.PrefixTemplate, vars)
	}

	return &template.Resource{
		Type:       template.TypeAlarm,
		Properties: props,
	}, nil
}

// actions starts from the ungrouped topic of severity and appends the topic
// of severity of every named group.
func (b *Builder) actions(severity Severity, groups []string) ([]any, error) {
	actions := []any{}
	if target, ok := b.topics.Default(severity); ok {
		actions = append(actions, target)
	}

	for _, group := range groups {
		target, err := b.topics.Lookup(group, severity)
		if err != nil {
			return nil, err
		}
		actions = append(actions, target)
	}

	return actions, nil
}

func (b *Builder) functionValue(fn FunctionContext) any {
	if b.external {
		return fn.DeployedName
	}
	return template.NewRef(fn.LogicalID)
}

func isStandardStatistic(stat string) bool {
	return slices.Contains(types.Statistic("").Values(), types.Statistic(stat))
}

// functionDimensions returns the declared dimensions with the function's own
// FunctionName dimension appended, unless omitDefault is set.
func functionDimensions(declared []Dimension, function any, omitDefault bool) []template.Dimension {
	dimensions := make([]template.Dimension, 0, len(declared)+1)
	for _, d := range declared {
		if !omitDefault && d.Name == functionNameDimension {
			continue
		}
		dimensions = append(dimensions, template.Dimension{Name: d.Name, Value: d.Value})
	}

	if !omitDefault {
		dimensions = append(dimensions, template.Dimension{
			Name:  functionNameDimension,
			Value: function,
		})
	}

	return dimensions
}

func anomalyDetectionMetrics(alarm Definition, namespace, metricID string, dimensions []template.Dimension) []template.MetricDataQuery {
	width := float64(defaultAnomalyBandWidth)
	if alarm.Threshold != nil {
		width = *alarm.Threshold
	}

	return []template.MetricDataQuery{
		{
			ID:         "m1",
			ReturnData: true,
			MetricStat: &template.MetricStat{
				Metric: template.Metric{
					Namespace:  namespace,
					MetricName: metricID,
					Dimensions: dimensions,
				},
				Period: alarm.Period,
				Stat:   alarm.Statistic,
			},
		},
		{
			ID:         "ad1",
			Expression: "ANOMALY_DETECTION_BAND(m1, " + strconv.FormatFloat(width, 'f', -1, 64) + ")",
			Label:      metricID + " (expected)",
			ReturnData: true,
		},
	}
}

func successRateMetrics(alarm Definition, namespace string, dimensions []template.Dimension) []template.MetricDataQuery {
	sum := func(id, metric string) template.MetricDataQuery {
		return template.MetricDataQuery{
			ID:         id,
			ReturnData: false,
			MetricStat: &template.MetricStat{
				Metric: template.Metric{
					Namespace:  namespace,
					MetricName: metric,
					Dimensions: dimensions,
				},
				Period: alarm.Period,
				Stat:   string(types.StatisticSum),
			},
		}
	}

	return []template.MetricDataQuery{
		sum("errors", "Errors"),
		sum("count", "Invocations"),
		{
			ID:         "successRate",
			Expression: "( 1 - (errors / count) ) * 100",
			ReturnData: true,
		},
	}
}

// LogMetricFilters returns the ALERT and OK metric filters feeding a pattern
// alarm. It returns an empty set for alarms without a pattern.
func (b *Builder) LogMetricFilters(alarm Definition, fn FunctionContext) *template.Resources {
	resources := template.NewResources()
	if alarm.Pattern == "" {
		return resources
	}

	base := LogMetricFilterLogicalID(fn.LogicalID, alarm.Name)
	metricName := PatternMetricName(alarm.Metric, fn.LogicalID)

	var dependsOn []string
	if !b.external && fn.LogGroupLogicalID != "" {
		dependsOn = []string{fn.LogGroupLogicalID}
	}

	filter := func(pattern, value string) template.Resource {
		return template.Resource{
			Type:      template.TypeMetricFilter,
			DependsOn: dependsOn,
			Properties: &template.MetricFilterProperties{
				FilterPattern: pattern,
				LogGroupName:  fn.LogGroupName,
				MetricTransformations: []template.MetricTransformation{{
					MetricValue:     value,
					MetricNamespace: b.stackName,
					MetricName:      metricName,
				}},
			},
		}
	}

	resources.Set(base+"ALERT", filter(alarm.Pattern, "1"))
	resources.Set(base+"OK", filter("", "0"))

	return resources
}
