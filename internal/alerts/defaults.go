package alerts

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const lambdaNamespace = "AWS/Lambda"

// DefaultDefinitions returns the built-in alarm definitions. User definitions
// with the same name are merged over them.
func DefaultDefinitions() DefinitionTable {
	return DefinitionTable{
		"functionInvocations": {
			Namespace:          lambdaNamespace,
			Metric:             "Invocations",
			Threshold:          aws.Float64(100),
			Statistic:          string(types.StatisticSum),
			Period:             aws.Int32(60),
			EvaluationPeriods:  aws.Int32(1),
			DatapointsToAlarm:  aws.Int32(1),
			ComparisonOperator: types.ComparisonOperatorGreaterThanOrEqualToThreshold,
		},
		"functionErrors": {
			Namespace:          lambdaNamespace,
			Metric:             "Errors",
			Threshold:          aws.Float64(1),
			Statistic:          string(types.StatisticSum),
			Period:             aws.Int32(60),
			EvaluationPeriods:  aws.Int32(1),
			DatapointsToAlarm:  aws.Int32(1),
			ComparisonOperator: types.ComparisonOperatorGreaterThanOrEqualToThreshold,
		},
		"functionDuration": {
			Namespace:          lambdaNamespace,
			Metric:             "Duration",
			Threshold:          aws.Float64(500),
			Statistic:          string(types.StatisticAverage),
			Period:             aws.Int32(60),
			EvaluationPeriods:  aws.Int32(1),
			DatapointsToAlarm:  aws.Int32(1),
			ComparisonOperator: types.ComparisonOperatorGreaterThanOrEqualToThreshold,
		},
		"functionThrottles": {
			Namespace:          lambdaNamespace,
			Metric:             "Throttles",
			Threshold:          aws.Float64(1),
			Statistic:          string(types.StatisticSum),
			Period:             aws.Int32(60),
			EvaluationPeriods:  aws.Int32(1),
			DatapointsToAlarm:  aws.Int32(1),
			ComparisonOperator: types.ComparisonOperatorGreaterThanOrEqualToThreshold,
		},
	}
}
