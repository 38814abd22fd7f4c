package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderBody(t *testing.T, tmpl string, functions []string) body {
	t.Helper()

	out, err := NewRenderer().Render("orders", "dev", "eu-west-1", functions, tmpl)
	require.NoError(t, err)

	var b body
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	return b
}

func TestRender_DefaultGrid(t *testing.T) {
	b := renderBody(t, "default", []string{"orders-dev-checkout", "orders-dev-payment"})
	require.Len(t, b.Widgets, 5)

	positions := make([][2]int, 0, len(b.Widgets))
	for _, w := range b.Widgets {
		assert.Equal(t, 12, w.Width)
		positions = append(positions, [2]int{w.X, w.Y})
	}
	assert.Equal(t, [][2]int{{0, 0}, {12, 0}, {0, 6}, {12, 6}, {0, 12}}, positions)

	errorsWidget := b.Widgets[1].Properties
	assert.Equal(t, "orders dev: Errors", errorsWidget.Title)
	assert.Equal(t, "Sum", errorsWidget.Stat)
	assert.Equal(t, "eu-west-1", errorsWidget.Region)
	assert.Equal(t, [][]any{
		{"AWS/Lambda", "Errors", "FunctionName", "orders-dev-checkout"},
		{"AWS/Lambda", "Errors", "FunctionName", "orders-dev-payment"},
	}, errorsWidget.Metrics)
}

func TestRender_Vertical(t *testing.T) {
	b := renderBody(t, "vertical", []string{"orders-dev-checkout"})

	for i, w := range b.Widgets {
		assert.Equal(t, 0, w.X)
		assert.Equal(t, i*6, w.Y)
		assert.Equal(t, 24, w.Width)
	}
	assert.Equal(t, "Average", b.Widgets[2].Properties.Stat)
}

func TestRender_NoFunctions(t *testing.T) {
	b := renderBody(t, "default", nil)

	for _, w := range b.Widgets {
		assert.Empty(t, w.Properties.Metrics)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := NewRenderer().Render("orders", "dev", "eu-west-1", nil, "ops")

	assert.ErrorIs(t, err, ErrUnknownDashboardTemplate)
	assert.Contains(t, err.Error(), "default, vertical")
}

func TestTemplates(t *testing.T) {
	assert.Equal(t, []string{"default", "vertical"}, Templates())
}
