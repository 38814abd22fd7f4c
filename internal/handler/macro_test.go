package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/dashboard"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/events"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/publish"
)

const fragment = `{
	"AWSTemplateFormatVersion": "2010-09-09",
	"Metadata": {"Alerts": {"alarms": ["functionErrors"]}},
	"Resources": {
		"Checkout": {
			"Type": "AWS::Lambda::Function",
			"Properties": {"FunctionName": "orders-checkout"}
		}
	}
}`

func setupHandler(t *testing.T, sender publish.Sender) *MacroHandler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	defaults := Defaults{Service: "orders", Stage: "dev"}

	return NewMacroHandler(dashboard.NewRenderer(), sender, logger, defaults, time.Second)
}

func newRequest(fragment string) MacroRequest {
	return MacroRequest{
		RequestID: "req-1",
		Region:    "eu-west-1",
		AccountID: "123456789012",
		Fragment:  json.RawMessage(fragment),
	}
}

func TestHandleRequest(t *testing.T) {
	h := setupHandler(t, nil)

	resp, err := h.HandleRequest(context.Background(), newRequest(fragment))
	require.NoError(t, err)

	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, statusSuccess, resp.Status)
	require.NotNil(t, resp.Fragment)

	res, ok := resp.Fragment.Resources.Get("CheckoutFunctionErrorsAlarm")
	require.True(t, ok)
	assert.Equal(t, "AWS::CloudWatch::Alarm", res.Type)

	_, ok = resp.Fragment.Resources.Get("Checkout")
	assert.True(t, ok)
}

func TestHandleRequest_PublishesReport(t *testing.T) {
	sender := new(SenderMock)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(r *events.CompileReport) bool {
		return r.AccountID == "123456789012" &&
			r.Summary.StackName == "orders-prod" &&
			r.Summary.Resources["AWS::CloudWatch::Alarm"] == 1
	})).Return(nil)
	h := setupHandler(t, sender)

	req := newRequest(fragment)
	req.TemplateParameterValues = map[string]any{"Stage": "prod"}
	resp, err := h.HandleRequest(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, statusSuccess, resp.Status)
	sender.AssertExpectations(t)
}

func TestHandleRequest_PublishErrorIgnored(t *testing.T) {
	sender := new(SenderMock)
	sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("throttled"))
	h := setupHandler(t, sender)

	resp, err := h.HandleRequest(context.Background(), newRequest(fragment))

	require.NoError(t, err)
	assert.Equal(t, statusSuccess, resp.Status)
}

func TestHandleRequest_Params(t *testing.T) {
	h := setupHandler(t, nil)

	req := newRequest(fragment)
	req.Params = map[string]any{"Service": "billing", "StackName": "billing-live"}
	req.TemplateParameterValues = map[string]any{"Service": "ignored", "Stage": 3}

	assert.Equal(t, "billing", h.param(req, "Service", "orders"))
	assert.Equal(t, "billing-live", h.param(req, "StackName", ""))
	assert.Equal(t, "dev", h.param(req, "Stage", "dev"))
}

func TestHandleRequest_InvalidFragment(t *testing.T) {
	h := setupHandler(t, nil)

	resp, err := h.HandleRequest(context.Background(), newRequest(`[`))

	require.NoError(t, err)
	assert.Equal(t, statusFailure, resp.Status)
	assert.Nil(t, resp.Fragment)
	assert.Contains(t, resp.ErrorMessage, "cannot parse fragment")
}

func TestHandleRequest_MissingService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewMacroHandler(dashboard.NewRenderer(), nil, logger, Defaults{Stage: "dev"}, time.Second)

	resp, err := h.HandleRequest(context.Background(), newRequest(fragment))

	require.NoError(t, err)
	assert.Equal(t, statusFailure, resp.Status)
	assert.Equal(t, ErrMissingService.Error(), resp.ErrorMessage)
}

func TestHandleRequest_ExternalStack(t *testing.T) {
	h := setupHandler(t, nil)

	resp, err := h.HandleRequest(context.Background(), newRequest(`{
		"Metadata": {"Alerts": {"alarms": ["functionErrors"], "externalStack": {"nameSuffix": "alerts"}}},
		"Resources": {"Checkout": {"Type": "AWS::Lambda::Function"}}
	}`))

	require.NoError(t, err)
	assert.Equal(t, statusFailure, resp.Status)
	assert.Equal(t, ErrExternalStack.Error(), resp.ErrorMessage)
}

func TestHandleRequest_UnknownAlarm(t *testing.T) {
	h := setupHandler(t, nil)

	resp, err := h.HandleRequest(context.Background(), newRequest(`{
		"Metadata": {"Alerts": {"alarms": ["noSuchAlarm"]}},
		"Resources": {"Checkout": {"Type": "AWS::Lambda::Function"}}
	}`))

	require.NoError(t, err)
	assert.Equal(t, statusFailure, resp.Status)
	assert.NotEmpty(t, resp.ErrorMessage)
}

func TestHandleRequest_NoAlertsConfig(t *testing.T) {
	sender := new(SenderMock)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(r *events.CompileReport) bool {
		return r.Summary.Skipped
	})).Return(nil)
	h := setupHandler(t, sender)

	resp, err := h.HandleRequest(context.Background(), newRequest(`{
		"Resources": {"Checkout": {"Type": "AWS::Lambda::Function"}}
	}`))

	require.NoError(t, err)
	assert.Equal(t, statusSuccess, resp.Status)
	assert.Equal(t, 1, resp.Fragment.Resources.Len())
	sender.AssertExpectations(t)
}

func TestMacroResponse_JSON(t *testing.T) {
	b, err := json.Marshal(MacroResponse{RequestID: "req-1", Status: statusFailure, ErrorMessage: "boom"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"requestId":"req-1","status":"failure","errorMessage":"boom"}`, string(b))
}
