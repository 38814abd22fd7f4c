package alerts

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	defaultNameTemplate   = "$[functionName]-$[metricName]"
	defaultPrefixTemplate = "$[stackName]"

	defaultAlarmAction = "AwsAlertsAlarm"
)

// UpperFirst upper-cases the first letter of s.
func UpperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// NormalizeName turns a function or alarm name into a logical id fragment.
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, "-", "Dash")
	name = strings.ReplaceAll(name, "_", "Underscore")
	return UpperFirst(name)
}

// AlarmLogicalID is the logical name of the alarm built for alarmName on functionName.
func AlarmLogicalID(alarmName, functionName string) string {
	return NormalizeName(functionName) + NormalizeName(alarmName) + "Alarm"
}

// LogMetricFilterLogicalID is the logical name prefix of the metric filters of a pattern alarm.
func LogMetricFilterLogicalID(functionLogicalID, alarmName string) string {
	return functionLogicalID + UpperFirst(alarmName) + "LogMetricFilter"
}

// PatternMetricName is the metric a pattern alarm's metric filters write to.
func PatternMetricName(metric, functionLogicalID string) string {
	return UpperFirst(metric) + functionLogicalID
}

// TopicLogicalID is the logical name of a synthesized notification topic.
func TopicLogicalID(group string, severity Severity) string {
	return "AwsAlerts" + UpperFirst(group) + UpperFirst(string(severity))
}

// CompositeLogicalID is the logical name of the composite alarm of a definition.
func CompositeLogicalID(definitionName string) string {
	return "AlertsComposite" + UpperFirst(definitionName)
}

// CompositeAlarmName is the physical name of the composite alarm of a definition.
func CompositeAlarmName(service, stage, region, definitionName string) string {
	return strings.Join([]string{service, stage, region, UpperFirst(definitionName)}, "-")
}

// DashboardLogicalID is the logical name of the dashboard rendered from tpl.
func DashboardLogicalID(tpl string) string {
	if tpl == defaultDashboard {
		return "AlertsDashboard"
	}
	return "AlertsDashboard" + tpl
}

// DashboardName is the physical name of the dashboard rendered from tpl.
func DashboardName(service, stage, region, tpl string) string {
	name := strings.Join([]string{service, stage, region}, "-")
	if tpl == defaultDashboard {
		return name
	}
	return name + "-" + tpl
}

// AlarmNameVars are the values available to alarm name templates.
type AlarmNameVars struct {
	FunctionName      string
	FunctionLogicalID string
	MetricName        string
	MetricID          string
	StackName         string
}

// RenderAlarmName renders tmpl and prefixes it with the rendered prefix template.
// A nil prefix falls back to the stack name; an empty prefix renders no prefix.
func RenderAlarmName(tmpl string, prefix *string, vars AlarmNameVars) string {
	r := strings.NewReplacer(
		"$[functionName]", vars.FunctionName,
		"$[functionId]", vars.FunctionLogicalID,
		"$[metricName]", vars.MetricName,
		"$[metricId]", vars.MetricID,
		"$[stackName]", vars.StackName,
	)

	p := defaultPrefixTemplate
	if prefix != nil {
		p = *prefix
	}

	name := r.Replace(tmpl)
	if renderedPrefix := r.Replace(p); renderedPrefix != "" {
		return renderedPrefix + "-" + name
	}
	return name
}
