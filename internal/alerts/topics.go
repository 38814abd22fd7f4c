package alerts

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/template"
)

// Severity is the alarm state a notification topic is attached to.
type Severity string

const (
	SeverityOK               Severity = "ok"
	SeverityAlarm            Severity = "alarm"
	SeverityInsufficientData Severity = "insufficientData"
)

func isSeverity(key string) bool {
	switch Severity(key) {
	case SeverityOK, SeverityAlarm, SeverityInsufficientData:
		return true
	default:
		return false
	}
}

const arnPrefix = "arn:"

// TopicTarget is the topic of a topic config: a name to create, an ARN, or an
// object such as an intrinsic function referencing an existing topic.
type TopicTarget struct {
	Name   string
	Object map[string]any
}

// IsZero reports whether no topic was configured.
func (t TopicTarget) IsZero() bool {
	return t.Name == "" && t.Object == nil
}

// Existing reports whether the target refers to an already deployed topic.
func (t TopicTarget) Existing() bool {
	return t.Object != nil || strings.HasPrefix(t.Name, arnPrefix)
}

func (t TopicTarget) action() any {
	if t.Object != nil {
		return t.Object
	}
	return t.Name
}

// Notification subscribes an endpoint to a created topic.
type Notification struct {
	Protocol string `yaml:"protocol"`
	Endpoint string `yaml:"endpoint"`
}

// TopicConfig is either a bare topic identifier or a {topic, notifications} object.
type TopicConfig struct {
	Topic         TopicTarget
	Notifications []Notification
}

// UnmarshalYAML decodes both topic config forms.
func (c *TopicConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var name string
		if err := node.Decode(&name); err != nil {
			return err
		}
		*c = TopicConfig{Topic: TopicTarget{Name: name}}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Topic         yaml.Node      `yaml:"topic"`
			Notifications []Notification `yaml:"notifications"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}

		*c = TopicConfig{Notifications: raw.Notifications}
		switch raw.Topic.Kind {
		case 0:
		case yaml.ScalarNode:
			return raw.Topic.Decode(&c.Topic.Name)
		case yaml.MappingNode:
			return raw.Topic.Decode(&c.Topic.Object)
		default:
			return fmt.Errorf("line %d: topic must be a name, an ARN or an object", raw.Topic.Line)
		}
		return nil
	default:
		return fmt.Errorf("line %d: topic config must be a name or an object", node.Line)
	}
}

// TopicEntry is one configured (group, severity) topic. Group is empty for
// topics shared by every alarm.
type TopicEntry struct {
	Group    string
	Severity Severity
	Config   TopicConfig
}

// Topics lists configured topics in declaration order.
type Topics []TopicEntry

// UnmarshalYAML decodes severity keys as ungrouped topics and every other key
// as a named group of severity keyed topics.
func (t *Topics) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: topics must be an object", node.Line)
	}

	var entries Topics
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]

		if isSeverity(key) {
			var cfg TopicConfig
			if err := value.Decode(&cfg); err != nil {
				return err
			}
			entries = append(entries, TopicEntry{Severity: Severity(key), Config: cfg})
			continue
		}

		if value.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: topic group %s must be an object", value.Line, key)
		}

		for j := 0; j+1 < len(value.Content); j += 2 {
			var cfg TopicConfig
			if err := value.Content[j+1].Decode(&cfg); err != nil {
				return err
			}
			entries = append(entries, TopicEntry{
				Group:    key,
				Severity: Severity(value.Content[j].Value),
				Config:   cfg,
			})
		}
	}

	*t = entries
	return nil
}

// ActionTopics resolves severities, optionally within a named group, to alarm
// action targets: literal ARNs, objects, or Refs to synthesized topics.
type ActionTopics struct {
	defaults map[Severity]any
	groups   map[string]map[Severity]any
}

func newActionTopics() *ActionTopics {
	return &ActionTopics{
		defaults: make(map[Severity]any),
		groups:   make(map[string]map[Severity]any),
	}
}

func (a *ActionTopics) set(group string, severity Severity, target any) {
	if group == "" {
		a.defaults[severity] = target
		return
	}

	if a.groups[group] == nil {
		a.groups[group] = make(map[Severity]any)
	}
	a.groups[group][severity] = target
}

// Default returns the ungrouped target for severity.
func (a *ActionTopics) Default(severity Severity) (any, bool) {
	target, ok := a.defaults[severity]
	return target, ok
}

// Lookup returns the target of severity within group.
func (a *ActionTopics) Lookup(group string, severity Severity) (any, error) {
	targets, ok := a.groups[group]
	if !ok {
		return nil, fmt.Errorf("%w: no topic group %q", ErrInvalidTopicReference, group)
	}

	target, ok := targets[severity]
	if !ok {
		return nil, fmt.Errorf("%w: topic group %q has no %s topic", ErrInvalidTopicReference, group, severity)
	}
	return target, nil
}

// Existing returns every literal ARN target, in no particular order.
func (a *ActionTopics) Existing() []string {
	var arns []string
	collect := func(targets map[Severity]any) {
		for _, target := range targets {
			if s, ok := target.(string); ok && strings.HasPrefix(s, arnPrefix) {
				arns = append(arns, s)
			}
		}
	}

	collect(a.defaults)
	for _, targets := range a.groups {
		collect(targets)
	}
	return arns
}

// CompileAlertTopics builds the action topic table and returns the topic
// resources that have to be created for it.
func CompileAlertTopics(topics Topics) (*ActionTopics, *template.Resources) {
	table := newActionTopics()
	resources := template.NewResources()

	for _, entry := range topics {
		target := entry.Config.Topic
		if target.IsZero() {
			continue
		}

		if target.Existing() {
			table.set(entry.Group, entry.Severity, target.action())
			continue
		}

		logicalID := TopicLogicalID(entry.Group, entry.Severity)
		table.set(entry.Group, entry.Severity, template.NewRef(logicalID))
		resources.Set(logicalID, topicResource(target.Name, entry.Config.Notifications))
	}

	return table, resources
}

func topicResource(name string, notifications []Notification) template.Resource {
	subscriptions := make([]template.Subscription, 0, len(notifications))
	for _, n := range notifications {
		subscriptions = append(subscriptions, template.Subscription{
			Protocol: n.Protocol,
			Endpoint: n.Endpoint,
		})
	}

	return template.Resource{
		Type: template.TypeTopic,
		Properties: &template.TopicProperties{
			TopicName:    name,
			Subscription: subscriptions,
		},
	}
}
