// Package handler serves the alerts compiler as a CloudFormation macro.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/alerts"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/events"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/publish"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/service"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/template"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

var (
	// ErrExternalStack indicates an alerts config asking for a separate stack,
	// which a macro cannot deploy.
	ErrExternalStack = errors.New("external alert stacks are not supported in macro mode")
	// ErrMissingService indicates that neither the macro parameters nor the
	// process settings name the service.
	ErrMissingService = errors.New("service name is not set")
)

// MacroRequest is the event CloudFormation sends to a template macro.
type MacroRequest struct {
	RequestID               string          `json:"requestId"`
	Region                  string          `json:"region"`
	AccountID               string          `json:"accountId"`
	TransformID             string          `json:"transformId"`
	Fragment                json.RawMessage `json:"fragment"`
	Params                  map[string]any  `json:"params"`
	TemplateParameterValues map[string]any  `json:"templateParameterValues"`
}

// MacroResponse is the reply CloudFormation expects from a template macro.
type MacroResponse struct {
	RequestID    string             `json:"requestId"`
	Status       string             `json:"status"`
	Fragment     *template.Template `json:"fragment,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
}

// Defaults fill in what a request leaves out.
type Defaults struct {
	Service string
	Stage   string
}

type MacroHandler struct {
	renderer       alerts.DashboardRenderer
	sender         publish.Sender
	logger         *slog.Logger
	defaults       Defaults
	publishTimeout time.Duration
}

// NewMacroHandler creates a macro handler. A nil sender disables report publishing.
func NewMacroHandler(
	renderer alerts.DashboardRenderer,
	sender publish.Sender,
	logger *slog.Logger,
	defaults Defaults,
	publishTimeout time.Duration,
) *MacroHandler {
	return &MacroHandler{
		renderer:       renderer,
		sender:         sender,
		logger:         logger,
		defaults:       defaults,
		publishTimeout: publishTimeout,
	}
}

// HandleRequest compiles the alerts of the request fragment. Compile failures
// are reported in the response so CloudFormation can surface them.
func (h *MacroHandler) HandleRequest(ctx context.Context, req MacroRequest) (MacroResponse, error) {
	tmpl, summary, err := h.compile(ctx, req)
	if err != nil {
		h.logger.ErrorContext(
			ctx,
			"cannot compile alerts",
			slog.String("requestId", req.RequestID),
			slog.String("error", err.Error()),
		)
		return MacroResponse{
			RequestID:    req.RequestID,
			Status:       statusFailure,
			ErrorMessage: err.Error(),
		}, nil
	}

	h.publish(ctx, &events.CompileReport{
		AccountID: req.AccountID,
		Timestamp: time.Now(),
		Summary:   summary,
	})

	return MacroResponse{
		RequestID: req.RequestID,
		Status:    statusSuccess,
		Fragment:  tmpl,
	}, nil
}

func (h *MacroHandler) compile(ctx context.Context, req MacroRequest) (*template.Template, *alerts.Summary, error) {
	var tmpl template.Template
	if err := json.Unmarshal(req.Fragment, &tmpl); err != nil {
		return nil, nil, fmt.Errorf("cannot parse fragment: %w", err)
	}

	opts := alerts.Options{
		Service: h.param(req, "Service", h.defaults.Service),
		Stage:   h.param(req, "Stage", h.defaults.Stage),
		Region:  req.Region,
	}
	if opts.Service == "" {
		return nil, nil, ErrMissingService
	}

	fragment := service.NewFragment(&tmpl, opts, h.param(req, "StackName", ""))

	cfg, err := fragment.Alerts()
	if err != nil {
		return nil, nil, err
	}

	compiler := alerts.NewCompiler(fragment, h.renderer, h.logger, opts)
	summary, err := compiler.Compile(ctx, cfg, &tmpl)
	if err != nil {
		return nil, nil, err
	}

	if summary.ExternalStack != nil {
		return nil, nil, ErrExternalStack
	}

	return &tmpl, summary, nil
}

// param reads key from the macro parameters, then from the template parameter
// values. Only non-empty strings count.
func (h *MacroHandler) param(req MacroRequest, key, fallback string) string {
	for _, values := range []map[string]any{req.Params, req.TemplateParameterValues} {
		if s, ok := values[key].(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// publish delivers the report without failing the transform.
func (h *MacroHandler) publish(ctx context.Context, report *events.CompileReport) {
	if h.sender == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.publishTimeout)
	defer cancel()

	if err := h.sender.Send(ctx, report); err != nil {
		h.logger.ErrorContext(
			ctx,
			"cannot publish compile report",
			slog.String("stackName", report.Summary.StackName),
			slog.String("error", err.Error()),
		)
		return
	}

	h.logger.InfoContext(ctx, "compile report published", slog.String("stackName", report.Summary.StackName))
}
