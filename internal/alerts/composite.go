package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/template"
)

type constituent struct {
	logicalID  string
	physicalID string
}

// CompositeResolver builds composite alarms over alarms already present in a
// document. It must run after every function's alarms were expanded.
type CompositeResolver struct {
	service string
	stage   string
	region  string
	logger  *slog.Logger
}

// NewCompositeResolver returns a resolver naming composites after the deployment.
func NewCompositeResolver(service, stage, region string, logger *slog.Logger) *CompositeResolver {
	return &CompositeResolver{
		service: service,
		stage:   stage,
		region:  region,
		logger:  logger,
	}
}

// Resolve emits one composite alarm per enabled composite definition that
// matches at least one alarm in doc, and merges them into doc.
func (r *CompositeResolver) Resolve(ctx context.Context, definitions DefinitionTable, doc template.Document) (*template.Resources, error) {
	batch := template.NewResources()

	for _, name := range definitions.Names() {
		def := definitions[name]
		if def.Type != TypeComposite || !def.IsEnabled() {
			continue
		}

		constituents, unnamed, err := resolveConstituents(def.AlarmsToInclude, doc)
		if err != nil {
			return nil, &Error{Alarm: name, Err: err}
		}
		if len(unnamed) > 0 {
			r.logger.WarnContext(
				ctx,
				"alarms without a literal AlarmName left out of composite",
				slog.String("composite", name),
				slog.Any("alarms", unnamed),
			)
		}
		if len(constituents) == 0 {
			continue
		}

		dependsOn := make([]string, 0, len(constituents))
		for _, c := range constituents {
			dependsOn = append(dependsOn, c.logicalID)
		}

		batch.Set(CompositeLogicalID(name), template.Resource{
			Type:      template.TypeCompositeAlarm,
			DependsOn: dependsOn,
			Properties: &template.CompositeAlarmProperties{
				AlarmName:        CompositeAlarmName(r.service, r.stage, r.region, name),
				AlarmDescription: def.Description,
				ActionsEnabled:   def.ActionsEnabled,
				AlarmRule:        alarmRule(constituents),
				AlarmActions:     compositeActions(def.AlarmsActions, doc),
			},
		})
	}

	doc.Merge(batch)
	return batch, nil
}

// resolveConstituents returns the alarms of doc whose logical id is in include,
// or every alarm when include is empty, in document order. An alarm without a
// literal AlarmName is an error when include names it and is returned in
// unnamed otherwise.
func resolveConstituents(include []string, doc template.Document) (out []constituent, unnamed []string, err error) {
	for _, logicalID := range doc.Names() {
		listed := slices.Contains(include, logicalID)
		if len(include) > 0 && !listed {
			continue
		}

		res, _ := doc.Get(logicalID)
		name, ok := res.AlarmName()
		if !ok {
			continue
		}

		if name == "" {
			if listed {
				return nil, nil, fmt.Errorf("%w: %s", ErrUnnamedAlarm, logicalID)
			}
			unnamed = append(unnamed, logicalID)
			continue
		}
		out = append(out, constituent{logicalID: logicalID, physicalID: name})
	}

	return out, unnamed, nil
}

// alarmRule ORs the ALARM state of every constituent.
func alarmRule(constituents []constituent) string {
	rules := make([]string, 0, len(constituents))
	for _, c := range constituents {
		rules = append(rules, "ALARM("+c.physicalID+")")
	}
	return strings.Join(rules, " OR ")
}

// compositeActions keeps the named actions that are enabled topics in doc.
func compositeActions(names []string, doc template.Document) []any {
	if len(names) == 0 {
		names = []string{defaultAlarmAction}
	}

	actions := []any{}
	for _, name := range names {
		res, ok := doc.Get(name)
		if !ok || res.Type != template.TypeTopic || res.Disabled() {
			continue
		}
		actions = append(actions, template.NewRef(name))
	}

	return actions
}
