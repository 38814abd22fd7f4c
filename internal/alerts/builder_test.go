package alerts

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/template"
)

func checkoutFunction() FunctionContext {
	return FunctionContext{
		Name:              "checkout",
		LogicalID:         "CheckoutLambdaFunction",
		LogGroupLogicalID: "CheckoutLogGroup",
		LogGroupName:      "/aws/lambda/orders-dev-checkout",
		DeployedName:      "orders-dev-checkout",
	}
}

func highErrors() Definition {
	return Definition{
		Name:               "highErrors",
		Enabled:            aws.Bool(true),
		Type:               TypeStatic,
		Metric:             "Errors",
		Threshold:          aws.Float64(5),
		Statistic:          "Sum",
		Period:             aws.Int32(60),
		EvaluationPeriods:  aws.Int32(1),
		ComparisonOperator: types.ComparisonOperatorGreaterThanThreshold,
	}
}

func buildAlarm(t *testing.T, b *Builder, alarm Definition) *template.AlarmProperties {
	t.Helper()

	res, err := b.Build(alarm, checkoutFunction())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, template.TypeAlarm, res.Type)

	props, ok := res.AlarmProperties()
	require.True(t, ok)
	return props
}

func TestBuild_StaticAlarm(t *testing.T) {
	props := buildAlarm(t, NewBuilder(nil, "orders-dev"), highErrors())

	assert.Equal(t, "Errors", props.MetricName)
	assert.Equal(t, "Sum", props.Statistic)
	assert.Empty(t, props.ExtendedStatistic)
	assert.Equal(t, 5.0, *props.Threshold)
	assert.Equal(t, int32(60), *props.Period)
	assert.Equal(t, "GreaterThanThreshold", props.ComparisonOperator)
	assert.Equal(t, "missing", props.TreatMissingData)
	assert.Empty(t, props.OKActions)
	assert.Empty(t, props.AlarmActions)
	assert.Empty(t, props.InsufficientDataActions)
	assert.Empty(t, props.AlarmName)
	assert.Equal(t, []template.Dimension{
		{Name: "FunctionName", Value: template.NewRef("CheckoutLambdaFunction")},
	}, props.Dimensions)
}

func TestBuild_NoFunctionRef(t *testing.T) {
	res, err := NewBuilder(nil, "orders-dev").Build(highErrors(), FunctionContext{Name: "checkout"})

	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestBuild_ExtendedStatistic(t *testing.T) {
	alarm := highErrors()
	alarm.Statistic = "p99"
	alarm.EvaluateLowSampleCountPercentile = "ignore"

	props := buildAlarm(t, NewBuilder(nil, "orders-dev"), alarm)

	assert.Empty(t, props.Statistic)
	assert.Equal(t, "p99", props.ExtendedStatistic)
	assert.Equal(t, "ignore", props.EvaluateLowSampleCountPercentile)
}

func TestBuild_DeclaredDimensions(t *testing.T) {
	alarm := highErrors()
	alarm.Dimensions = []Dimension{
		{Name: "FunctionName", Value: "other"},
		{Name: "Resource", Value: "checkout:live"},
	}

	props := buildAlarm(t, NewBuilder(nil, "orders-dev"), alarm)
	assert.Equal(t, []template.Dimension{
		{Name: "Resource", Value: "checkout:live"},
		{Name: "FunctionName", Value: template.NewRef("CheckoutLambdaFunction")},
	}, props.Dimensions)

	alarm.OmitDefaultDimension = aws.Bool(true)
	props = buildAlarm(t, NewBuilder(nil, "orders-dev"), alarm)
	assert.Equal(t, []template.Dimension{
		{Name: "FunctionName", Value: "other"},
		{Name: "Resource", Value: "checkout:live"},
	}, props.Dimensions)
}

func TestBuild_AnomalyDetection(t *testing.T) {
	alarm := highErrors()
	alarm.Type = TypeAnomalyDetection
	alarm.Threshold = aws.Float64(2.5)
	alarm.ComparisonOperator = types.ComparisonOperatorGreaterThanUpperThreshold

	props := buildAlarm(t, NewBuilder(nil, "orders-dev"), alarm)

	assert.Equal(t, "ad1", props.ThresholdMetricID)
	assert.Nil(t, props.Threshold)
	assert.Empty(t, props.Statistic)
	assert.Empty(t, props.MetricName)
	require.Len(t, props.Metrics, 2)

	assert.Equal(t, "m1", props.Metrics[0].ID)
	require.NotNil(t, props.Metrics[0].MetricStat)
	assert.Equal(t, "Errors", props.Metrics[0].MetricStat.Metric.MetricName)
	assert.Equal(t, "Sum", props.Metrics[0].MetricStat.Stat)

	assert.Equal(t, "ad1", props.Metrics[1].ID)
	assert.Equal(t, "ANOMALY_DETECTION_BAND(m1, 2.5)", props.Metrics[1].Expression)
}

func TestBuild_AnomalyDetectionDefaultWidth(t *testing.T) {
	alarm := highErrors()
	alarm.Type = TypeAnomalyDetection
	alarm.Threshold = nil

	props := buildAlarm(t, NewBuilder(nil, "orders-dev"), alarm)
	assert.Equal(t, "ANOMALY_DETECTION_BAND(m1, 2)", props.Metrics[1].Expression)
}

func TestBuild_SuccessRate(t *testing.T) {
	alarm := highErrors()
	alarm.Type = TypeSuccessRate
	alarm.Threshold = aws.Float64(99)
	alarm.ComparisonOperator = types.ComparisonOperatorLessThanThreshold

	props := buildAlarm(t, NewBuilder(nil, "orders-dev"), alarm)

	assert.Equal(t, 99.0, *props.Threshold)
	require.Len(t, props.Metrics, 3)

	ids := make([]string, 0, 3)
	for _, m := range props.Metrics {
		ids = append(ids, m.ID)
		assert.Equal(t, m.ID == "successRate", m.ReturnData, m.ID)
	}
	assert.Equal(t, []string{"errors", "count", "successRate"}, ids)

	assert.Equal(t, "AWS/Lambda", props.Metrics[0].MetricStat.Metric.Namespace)
	assert.Equal(t, "Errors", props.Metrics[0].MetricStat.Metric.MetricName)
	assert.Equal(t, "Invocations", props.Metrics[1].MetricStat.Metric.MetricName)
	assert.Equal(t, "( 1 - (errors / count) ) * 100", props.Metrics[2].Expression)
}

func TestBuild_UnsupportedType(t *testing.T) {
	alarm := highErrors()
	alarm.Type = TypeComposite

	_, err := NewBuilder(nil, "orders-dev").Build(alarm, checkoutFunction())

	assert.ErrorIs(t, err, ErrUnsupportedAlarmType)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "highErrors", e.Alarm)
	assert.Equal(t, "checkout", e.Function)
}

func TestBuild_InvalidComparisonOperator(t *testing.T) {
	alarm := highErrors()
	alarm.ComparisonOperator = "BiggerThan"

	_, err := NewBuilder(nil, "orders-dev").Build(alarm, checkoutFunction())
	assert.ErrorIs(t, err, ErrInvalidComparisonOperator)
}

func TestBuild_ActionsFromTopics(t *testing.T) {
	topics, _ := CompileAlertTopics(Topics{
		{Severity: SeverityAlarm, Config: TopicConfig{Topic: TopicTarget{Name: "my-topic-name"}}},
		{Group: "critical", Severity: SeverityAlarm, Config: TopicConfig{Topic: TopicTarget{Name: "arn:aws:sns:eu-west-1:123456789012:pager"}}},
	})

	alarm := highErrors()
	alarm.AlarmActions = []string{"critical"}

	props := buildAlarm(t, NewBuilder(topics, "orders-dev"), alarm)

	assert.Equal(t, []any{
		template.NewRef("AwsAlertsAlarm"),
		"arn:aws:sns:eu-west-1:123456789012:pager",
	}, props.AlarmActions)
	assert.Empty(t, props.OKActions)
}

func TestBuild_InvalidTopicReference(t *testing.T) {
	topics, _ := CompileAlertTopics(Topics{
		{Group: "critical", Severity: SeverityAlarm, Config: TopicConfig{Topic: TopicTarget{Name: "pager"}}},
	})

	tests := []struct {
		name  string
		alarm func(d *Definition)
	}{
		{
			name:  "unknown group",
			alarm: func(d *Definition) { d.AlarmActions = []string{"nope"} },
		},
		{
			name:  "missing severity in group",
			alarm: func(d *Definition) { d.OKActions = []string{"critical"} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alarm := highErrors()
			tt.alarm(&alarm)

			_, err := NewBuilder(topics, "orders-dev").Build(alarm, checkoutFunction())
			assert.ErrorIs(t, err, ErrInvalidTopicReference)
		})
	}
}

func TestBuild_AlarmNames(t *testing.T) {
	tests := []struct {
		name     string
		nameTmpl *string
		prefix   *string
		want     string
	}{
		{
			name: "no templates",
			want: "",
		},
		{
			name:     "name template with default prefix",
			nameTmpl: aws.String("$[functionName]-$[metricName]"),
			want:     "orders-dev-checkout-Errors",
		},
		{
			name:     "name template with empty prefix",
			nameTmpl: aws.String("$[functionId]-$[metricId]"),
			prefix:   aws.String(""),
			want:     "CheckoutLambdaFunction-Errors",
		},
		{
			name:   "prefix only uses the alarm name",
			prefix: aws.String("team"),
			want:   "team-checkout-highErrors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alarm := highErrors()
			alarm.NameTemplate = tt.nameTmpl
			alarm.PrefixTemplate = tt.prefix

			props := buildAlarm(t, NewBuilder(nil, "orders-dev"), alarm)
			assert.Equal(t, tt.want, props.AlarmName)
		})
	}
}

func TestBuild_PatternAlarm(t *testing.T) {
	alarm := highErrors()
	alarm.Name = "bunyanErrors"
	alarm.Metric = "bunyanErrors"
	alarm.Pattern = "{$.level > 40}"

	b := NewBuilder(nil, "orders-dev")
	props := buildAlarm(t, b, alarm)

	assert.Equal(t, "orders-dev", props.Namespace)
	assert.Equal(t, "BunyanErrorsCheckoutLambdaFunction", props.MetricName)
	assert.Empty(t, props.Dimensions)

	filters := b.LogMetricFilters(alarm, checkoutFunction())
	assert.Equal(t, []string{
		"CheckoutLambdaFunctionBunyanErrorsLogMetricFilterALERT",
		"CheckoutLambdaFunctionBunyanErrorsLogMetricFilterOK",
	}, filters.Names())

	alert, _ := filters.Get("CheckoutLambdaFunctionBunyanErrorsLogMetricFilterALERT")
	assert.Equal(t, template.TypeMetricFilter, alert.Type)
	assert.Equal(t, []string{"CheckoutLogGroup"}, alert.DependsOn)
	assert.Equal(t, &template.MetricFilterProperties{
		FilterPattern: "{$.level > 40}",
		LogGroupName:  "/aws/lambda/orders-dev-checkout",
		MetricTransformations: []template.MetricTransformation{{
			MetricValue:     "1",
			MetricNamespace: "orders-dev",
			MetricName:      "BunyanErrorsCheckoutLambdaFunction",
		}},
	}, alert.Properties)

	ok, _ := filters.Get("CheckoutLambdaFunctionBunyanErrorsLogMetricFilterOK")
	okProps := ok.Properties.(*template.MetricFilterProperties)
	assert.Empty(t, okProps.FilterPattern)
	assert.Equal(t, "0", okProps.MetricTransformations[0].MetricValue)
}

func TestBuild_NoPatternNoFilters(t *testing.T) {
	filters := NewBuilder(nil, "orders-dev").LogMetricFilters(highErrors(), checkoutFunction())
	assert.Zero(t, filters.Len())
}

func TestBuild_External(t *testing.T) {
	alarm := highErrors()
	b := NewBuilder(nil, "orders-dev").External()

	props := buildAlarm(t, b, alarm)
	assert.Equal(t, []template.Dimension{
		{Name: "FunctionName", Value: "orders-dev-checkout"},
	}, props.Dimensions)

	alarm.Pattern = "ERROR"
	filters := b.LogMetricFilters(alarm, checkoutFunction())
	for _, name := range filters.Names() {
		res, _ := filters.Get(name)
		assert.Empty(t, res.DependsOn, name)
	}
}
