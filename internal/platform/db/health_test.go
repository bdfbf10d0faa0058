package db

import (
	"encoding/json"
	"strings"
	"testing"
)

// The health endpoint body is what an operator's dashboard scrapes, so the
// wire names matter more than the Go field names.
func TestPoolStats_WireFormat(t *testing.T) {
	stats := PoolStats{
		TotalConns:      4,
		IdleConns:       3,
		AcquiredConns:   1,
		MaxConns:        10,
		AcquireCount:    250,
		AcquireDuration: "180ms",
		Healthy:         true,
	}
	body, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{
		`"total_conns":4`, `"idle_conns":3`, `"acquired_conns":1`,
		`"max_conns":10`, `"acquire_count":250`,
		`"acquire_duration":"180ms"`, `"healthy":true`,
	} {
		if !strings.Contains(string(body), key) {
			t.Errorf("body %s missing %s", body, key)
		}
	}
}

func TestPoolStats_ZeroConnsIsUnhealthy(t *testing.T) {
	// GetPoolStats derives Healthy from TotalConns > 0; a drained pool must
	// never serialize as healthy.
	stats := PoolStats{MaxConns: 10, Healthy: false}
	body, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(body), `"healthy":false`) {
		t.Errorf("drained pool serialized as %s", body)
	}
}
