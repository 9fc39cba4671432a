package metrics

import "testing"

func TestStandardCounters(t *testing.T) {
	Standard().Counter(TxAdmitted).Inc()
	Standard().Counter(TxAdmitted).Inc()
	if got := Standard().Counter(TxAdmitted).Value(); got != 2 {
		t.Fatalf("TxAdmitted = %d, want 2", got)
	}

	Standard().Gauge(MempoolDepth).Set(5)
	if got := Standard().Gauge(MempoolDepth).Value(); got != 5 {
		t.Fatalf("MempoolDepth = %d, want 5", got)
	}
}
