package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	t.Run("should count remote calls and served requests", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c, err := NewCollector(reg)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		c.ObserveRemote("update", "ok", 10*time.Millisecond)
		c.ObserveRemote("update", "ok", 20*time.Millisecond)
		c.ObserveHTTP("GET", "/designs/", "200", time.Millisecond)

		if got := testutil.ToFloat64(c.RemoteRequests.WithLabelValues("update", "ok")); got != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%v", got)
		}
		if got := testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/designs/", "200")); got != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%v", got)
		}
	})

	t.Run("should reuse metrics registered twice", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		first, err := NewCollector(reg)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		second, err := NewCollector(reg)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if first.RemoteRequests != second.RemoteRequests {
			t.Fatalf("\nwanted:\nshared counter\ngot:\ndistinct counters")
		}
	})

	t.Run("should serve the exposition format", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c, _ := NewCollector(reg)
		c.ObserveRemote("list", "error", time.Millisecond)

		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		if !strings.Contains(rec.Body.String(), "netdesign_remote_requests_total") {
			t.Fatalf("\nwanted:\nmetric in body\ngot:\n%s", rec.Body.String())
		}
	})

	t.Run("should ignore observations on a nil collector", func(t *testing.T) {
		var c *Collector
		c.ObserveRemote("get", "ok", time.Second)
		c.ObserveHTTP("GET", "/", "200", time.Second)
	})
}
