package alerts

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDefinition indicates a bare alarm reference names no definition.
	ErrUnknownDefinition = errors.New("alarm definition does not exist")
	// ErrMissingConfig indicates alarm expansion ran without an alerts config.
	ErrMissingConfig = errors.New("missing config argument")
	// ErrMissingDefinitions indicates alarm expansion ran without a definition table.
	ErrMissingDefinitions = errors.New("missing definitions argument")
	// ErrUnsupportedAlarmType indicates a resolved alarm has no buildable type.
	ErrUnsupportedAlarmType = errors.New("unsupported alarm type, must be one of 'static', 'anomalyDetection' or 'successRate'")
	// ErrInvalidTopicReference indicates an action list names an unknown topic group or severity.
	ErrInvalidTopicReference = errors.New("invalid topic reference")
	// ErrInvalidComparisonOperator indicates a comparison operator CloudWatch does not know.
	ErrInvalidComparisonOperator = errors.New("invalid comparison operator")
	// ErrUnnamedAlarm indicates a composite constituent has no physical AlarmName.
	ErrUnnamedAlarm = errors.New("alarm has no AlarmName to reference")
	// ErrUnknownFunction indicates the function registry has no such function.
	ErrUnknownFunction = errors.New("function does not exist")
)

// Error identifies the alarm and, when known, the function a compile error relates to.
type Error struct {
	Alarm    string
	Function string
	Err      error
}

func (e *Error) Error() string {
	if e.Function == "" {
		return fmt.Sprintf("alarm %s: %v", e.Alarm, e.Err)
	}
	return fmt.Sprintf("alarm %s on function %s: %v", e.Alarm, e.Function, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
