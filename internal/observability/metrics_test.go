package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	req := require.New(t)
	RegisterMetrics()
	RegisterMetrics()

	SetActiveDepartures(3)
	req.Equal(float64(3), testutil.ToFloat64(activeDepartures))

	before := testutil.ToFloat64(departures.WithLabelValues("departed"))
	RecordDeparture("departed")
	req.Equal(before+1, testutil.ToFloat64(departures.WithLabelValues("departed")))

	RecordCommand("start", "ok")
	RecordHTTPRequest("POST", "/slack/train", 200, 12*time.Millisecond)
	req.GreaterOrEqual(testutil.ToFloat64(commands.WithLabelValues("start", "ok")), float64(1))
}
