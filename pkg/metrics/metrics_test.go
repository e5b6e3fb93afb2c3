package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterCollectors(reg)

	Uploads.WithLabelValues("ok").Inc()
	Questions.WithLabelValues("no_document").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["docchat_uploads_total"])
	require.True(t, names["docchat_questions_total"])

	// registering twice on the same registry panics
	require.Panics(t, func() { RegisterCollectors(reg) })
}
