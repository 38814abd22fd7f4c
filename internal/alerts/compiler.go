// Package alerts compiles a declarative alerting configuration into
// CloudWatch alarms, composite alarms, SNS topics, log metric filters and
// dashboards of a CloudFormation template.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/template"
)

var tracer = otel.Tracer("github.com/ab0utbla-k/cloudwatch-alerts/internal/alerts")

// Options identify the deployment being compiled.
type Options struct {
	Service string
	Stage   string
	Region  string
}

// Summary describes the outcome of one compile pass.
type Summary struct {
	Service   string         `json:"service"`
	Stage     string         `json:"stage"`
	Region    string         `json:"region"`
	StackName string         `json:"stackName"`
	Skipped   bool           `json:"skipped"`
	Functions int            `json:"functions"`
	Resources map[string]int `json:"resources"`
	// AlarmNames are the physical names of the emitted alarms and composites.
	AlarmNames []string `json:"alarmNames"`
	// UnnamedAlarms are the logical ids of emitted alarms left for
	// CloudFormation to name.
	UnnamedAlarms []string `json:"unnamedAlarms"`
	// ExistingTopics are the literal topic ARNs alarm actions point at.
	ExistingTopics []string `json:"existingTopics"`

	// ExternalStack is set when alert resources went to a separate stack.
	ExternalStack *template.ExternalStack `json:"-"`
}

func (s *Summary) add(rs *template.Resources) {
	for typ, n := range rs.CountByType() {
		s.Resources[typ] += n
	}

	for _, name := range rs.Names() {
		res, _ := rs.Get(name)
		switch props := res.Properties.(type) {
		case *template.AlarmProperties:
			if props.AlarmName == "" {
				s.UnnamedAlarms = append(s.UnnamedAlarms, name)
				continue
			}
			s.AlarmNames = append(s.AlarmNames, props.AlarmName)
		case *template.CompositeAlarmProperties:
			s.AlarmNames = append(s.AlarmNames, props.AlarmName)
		}
	}
}

// AlarmStackName is the stack the compiled alarms are deployed with.
func (s *Summary) AlarmStackName() string {
	if s.ExternalStack != nil {
		return s.ExternalStack.StackName
	}
	return s.StackName
}

// Compiled reports whether a deployed alarm name belongs to this pass.
// CloudFormation names an alarm without AlarmName {stack}-{logicalId}-{suffix}.
func (s *Summary) Compiled(alarmName string) bool {
	if slices.Contains(s.AlarmNames, alarmName) {
		return true
	}

	for _, logicalID := range s.UnnamedAlarms {
		if strings.HasPrefix(alarmName, s.AlarmStackName()+"-"+logicalID+"-") {
			return true
		}
	}
	return false
}

// Compiler runs a compile pass over a deployment.
type Compiler struct {
	registry Registry
	renderer DashboardRenderer
	logger   *slog.Logger
	opts     Options
}

// NewCompiler creates a new Compiler instance.
func NewCompiler(registry Registry, renderer DashboardRenderer, logger *slog.Logger, opts Options) *Compiler {
	return &Compiler{
		registry: registry,
		renderer: renderer,
		logger:   logger,
		opts:     opts,
	}
}

// Compile emits the alert resources of cfg into tmpl, or into a separate
// stack when cfg asks for one. A nil cfg or a stage excluded by cfg leaves
// tmpl untouched.
func (c *Compiler) Compile(ctx context.Context, cfg *Config, tmpl *template.Template) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "alerts.compile")
	defer span.End()
	span.SetAttributes(
		attribute.String("alerts.service", c.opts.Service),
		attribute.String("alerts.stage", c.opts.Stage),
	)

	summary := &Summary{
		Service:   c.opts.Service,
		Stage:     c.opts.Stage,
		Region:    c.opts.Region,
		StackName: c.registry.StackName(),
		Resources: make(map[string]int),
	}

	if cfg == nil {
		c.logger.WarnContext(ctx, "no alerts config found; skipping alerts")
		summary.Skipped = true
		return summary, nil
	}

	if cfg.Stages != nil && !slices.Contains(cfg.Stages, c.opts.Stage) {
		c.logger.WarnContext(
			ctx,
			"stage not listed in alerts config; skipping alerts",
			slog.String("stage", c.opts.Stage),
			slog.Any("stages", cfg.Stages),
		)
		summary.Skipped = true
		return summary, nil
	}

	if tmpl.Resources == nil {
		tmpl.Resources = template.NewResources()
	}

	var doc template.Document = tmpl.Resources
	if cfg.ExternalStack != nil {
		external := template.NewExternalStack(summary.StackName, cfg.ExternalStack.NameSuffix)
		summary.ExternalStack = external
		doc = external
	}

	definitions := MergeDefinitions(DefaultDefinitions(), cfg.Definitions)

	topics := c.compileTopics(ctx, cfg, doc, summary)

	builder := NewBuilder(topics, summary.StackName)
	if summary.ExternalStack != nil {
		builder = builder.External()
	}

	if err := c.compileAlarms(ctx, cfg, definitions, builder, doc, summary); err != nil {
		return nil, err
	}

	if err := c.compileComposites(ctx, definitions, doc, summary); err != nil {
		return nil, err
	}

	if err := c.compileDashboards(ctx, cfg, doc, summary); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("alerts.functions", summary.Functions),
		attribute.Int("alerts.resources", total(summary.Resources)),
	)
	c.logger.InfoContext(
		ctx,
		"alerts compiled",
		slog.String("stackName", summary.StackName),
		slog.Int("functions", summary.Functions),
		slog.Int("resources", total(summary.Resources)),
	)

	return summary, nil
}

func (c *Compiler) compileTopics(ctx context.Context, cfg *Config, doc template.Document, summary *Summary) *ActionTopics {
	_, span := tracer.Start(ctx, "alerts.topics")
	defer span.End()

	topics, resources := CompileAlertTopics(cfg.Topics)
	doc.Merge(resources)
	summary.add(resources)

	summary.ExistingTopics = topics.Existing()
	slices.Sort(summary.ExistingTopics)
	span.SetAttributes(attribute.Int("alerts.topics", resources.Len()))

	return topics
}

func (c *Compiler) compileAlarms(
	ctx context.Context,
	cfg *Config,
	definitions DefinitionTable,
	builder *Builder,
	doc template.Document,
	summary *Summary,
) error {
	_, span := tracer.Start(ctx, "alerts.alarms")
	defer span.End()

	expander, err := NewExpander(cfg, definitions, builder)
	if err != nil {
		return fmt.Errorf("cannot resolve global alarms: %w", err)
	}

	for _, name := range c.registry.Functions() {
		fn, err := functionContext(c.registry, name)
		if err != nil {
			return fmt.Errorf("cannot load function %q: %w", name, err)
		}

		batch, err := expander.Expand(fn, doc)
		if err != nil {
			return fmt.Errorf("cannot expand alarms: %w", err)
		}
		summary.add(batch)
		summary.Functions++
	}

	span.SetAttributes(attribute.Int("alerts.functions", summary.Functions))
	return nil
}

func (c *Compiler) compileComposites(ctx context.Context, definitions DefinitionTable, doc template.Document, summary *Summary) error {
	ctx, span := tracer.Start(ctx, "alerts.composites")
	defer span.End()

	resolver := NewCompositeResolver(c.opts.Service, c.opts.Stage, c.opts.Region, c.logger)
	resources, err := resolver.Resolve(ctx, definitions, doc)
	if err != nil {
		return fmt.Errorf("cannot resolve composite alarms: %w", err)
	}
	summary.add(resources)

	span.SetAttributes(attribute.Int("alerts.composites", resources.Len()))
	return nil
}

func (c *Compiler) compileDashboards(ctx context.Context, cfg *Config, doc template.Document, summary *Summary) error {
	ctx, span := tracer.Start(ctx, "alerts.dashboards")
	defer span.End()

	templates, skipped := cfg.Dashboards.TemplatesFor(c.opts.Stage)
	if skipped {
		c.logger.InfoContext(
			ctx,
			"stage not listed for dashboards; skipping dashboards",
			slog.String("stage", c.opts.Stage),
		)
		return nil
	}
	if len(templates) == 0 {
		return nil
	}

	functions := make([]string, 0, summary.Functions)
	for _, name := range c.registry.Functions() {
		functions = append(functions, c.registry.DeployedName(name))
	}

	resources, err := CompileDashboards(c.renderer, templates, c.opts.Service, c.opts.Stage, c.opts.Region, functions)
	if err != nil {
		return err
	}
	doc.Merge(resources)
	summary.add(resources)

	span.SetAttributes(attribute.StringSlice("alerts.dashboards", templates))
	return nil
}

func total(counts map[string]int) int {
	n := 0
	for v := range maps.Values(counts) {
		n += v
	}
	return n
}
