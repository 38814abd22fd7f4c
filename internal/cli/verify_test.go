package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/alerts"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/template"
)

func TestAuditPrefixes(t *testing.T) {
	tests := []struct {
		name    string
		summary *alerts.Summary
		extra   []string
		want    []string
	}{
		{
			name:    "service stack",
			summary: &alerts.Summary{StackName: "orders-dev"},
			want:    []string{"orders-dev"},
		},
		{
			name: "external stack",
			summary: &alerts.Summary{
				StackName:     "orders-dev",
				ExternalStack: template.NewExternalStack("orders-dev", ""),
			},
			want: []string{"orders-dev", "orders-dev-alerts"},
		},
		{
			name:    "extra prefixes deduplicated",
			summary: &alerts.Summary{StackName: "orders-dev"},
			extra:   []string{"orders-dev", "legacy-orders"},
			want:    []string{"orders-dev", "legacy-orders"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auditPrefixes(tt.summary, tt.extra))
		})
	}
}
