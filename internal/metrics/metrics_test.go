package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should be ignored: %v", err)
	}
}

func TestObserveCache(t *testing.T) {
	before := testutil.ToFloat64(CacheLookups.WithLabelValues("fact", "hit"))
	ObserveCache("fact", true)
	ObserveCache("fact", false)
	if got := testutil.ToFloat64(CacheLookups.WithLabelValues("fact", "hit")); got != before+1 {
		t.Fatalf("hit counter=%v want %v", got, before+1)
	}
}

func TestObserveRPC(t *testing.T) {
	before := testutil.ToFloat64(RPCRequests.WithLabelValues("eth_getLogs", "none"))
	ObserveRPC("eth_getLogs", "none")
	if got := testutil.ToFloat64(RPCRequests.WithLabelValues("eth_getLogs", "none")); got != before+1 {
		t.Fatalf("rpc counter=%v", got)
	}
}

func TestHandlerServesDefaultRegistry(t *testing.T) {
	_ = Register(prometheus.DefaultRegisterer)
	ScanShrinks.Add(0)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "tokenrisk_scan_shrinks_total") {
		t.Fatal("expected scan shrink counter in exposition")
	}
}
