package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// counterSum adds up every sample of the named family.
func counterSum(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestManagerRecords(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithRegistry(reg), WithNamespace("test"), WithSubsystem("engine"))

		Convey("When scores and alerts are observed", func() {
			m.ObserveScore("scholar", "at_risk", 15*time.Millisecond)
			m.ObserveScore("scholar", "watch", 5*time.Millisecond)
			m.ObserveAlert("scholar", "band_escalation")

			Convey("Then the counters reflect them", func() {
				So(counterSum(reg, "test_engine_scores_total"), ShouldEqual, 2)
				So(counterSum(reg, "test_engine_alerts_total"), ShouldEqual, 1)
			})
		})

		Convey("When batch items are observed", func() {
			m.ObserveBatchItem("training_need", true)
			m.ObserveBatchItem("training_need", false)
			m.ObserveBatchItem("training_need", false)

			Convey("Then successes and errors are both counted", func() {
				So(counterSum(reg, "test_engine_batch_items_total"), ShouldEqual, 3)
			})
		})

		Convey("When the handler is scraped", func() {
			m.ObserveHTTP("/healthz", http.MethodGet, http.StatusOK, time.Millisecond)

			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			body, _ := io.ReadAll(rec.Body)

			Convey("Then the exposition includes the request", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(strings.Contains(string(body), "test_engine_http_requests_total"), ShouldBeTrue)
			})
		})
	})
}

func TestNilManagerIsNoop(t *testing.T) {
	Convey("Given a nil manager", t, func() {
		var m *Manager

		Convey("Then every observation is a no-op", func() {
			So(func() {
				m.ObserveScore("scholar", "watch", time.Second)
				m.ObserveEnrichment("scholar", EnrichApplied)
				m.ObserveExtractionIssue("scholar", "gpa_scale")
				m.ObserveBatchItem("scholar", true)
				m.BatchStarted()
				m.BatchFinished("scholar", "completed")
				m.ObserveReaped(3)
				m.ObserveHTTP("/", http.MethodGet, 200, time.Second)
			}, ShouldNotPanic)
		})
	})
}
