package alerts

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/template"
)

const defaultDashboard = "default"

// Dashboards selects the dashboard templates to deploy. It decodes from a
// boolean, a template name, a list of template names, or an object with
// stages and templates.
type Dashboards struct {
	Enabled   *bool
	Templates []string
	Stages    []string

	staged bool
}

// UnmarshalYAML decodes every supported dashboards form.
func (d *Dashboards) UnmarshalYAML(node *yaml.Node) error {
	*d = Dashboards{}

	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!bool" {
			var enabled bool
			if err := node.Decode(&enabled); err != nil {
				return err
			}
			d.Enabled = &enabled
			return nil
		}
		d.Templates = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		return node.Decode(&d.Templates)
	case yaml.MappingNode:
		var raw struct {
			Stages    *[]string `yaml:"stages"`
			Templates []string  `yaml:"templates"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		d.Templates = raw.Templates
		if raw.Stages != nil {
			d.staged = true
			d.Stages = *raw.Stages
		}
		return nil
	default:
		return fmt.Errorf("line %d: dashboards must be a boolean, a name, a list or an object", node.Line)
	}
}

// StagedDashboards restricts templates to the given stages.
func StagedDashboards(stages, templates []string) *Dashboards {
	return &Dashboards{Stages: stages, Templates: templates, staged: true}
}

// TemplatesFor returns the distinct templates to render at stage. skipped is
// true when the stage filter excluded every dashboard.
func (d *Dashboards) TemplatesFor(stage string) (templates []string, skipped bool) {
	if d == nil {
		return nil, false
	}

	switch {
	case d.Enabled != nil:
		if !*d.Enabled {
			return nil, false
		}
		templates = []string{defaultDashboard}
	case d.staged:
		if !slices.Contains(d.Stages, stage) {
			return nil, true
		}
		templates = d.Templates
		if len(templates) == 0 {
			templates = []string{defaultDashboard}
		}
	case len(d.Templates) > 0:
		templates = d.Templates
	default:
		templates = []string{defaultDashboard}
	}

	var distinct []string
	for _, t := range templates {
		if !slices.Contains(distinct, t) {
			distinct = append(distinct, t)
		}
	}
	return distinct, false
}

// DashboardRenderer renders a dashboard body for the given functions.
type DashboardRenderer interface {
	Render(service, stage, region string, functions []string, tmpl string) (string, error)
}

// CompileDashboards renders one dashboard resource per template name.
func CompileDashboards(
	renderer DashboardRenderer,
	templates []string,
	service, stage, region string,
	functions []string,
) (*template.Resources, error) {
	resources := template.NewResources()

	for _, tmpl := range templates {
		body, err := renderer.Render(service, stage, region, functions, tmpl)
		if err != nil {
			return nil, fmt.Errorf("cannot render dashboard %q: %w", tmpl, err)
		}

		resources.Set(DashboardLogicalID(tmpl), template.Resource{
			Type: template.TypeDashboard,
			Properties: &template.DashboardProperties{
				DashboardName: DashboardName(service, stage, region, tmpl),
				DashboardBody: body,
			},
		})
	}

	return resources, nil
}
