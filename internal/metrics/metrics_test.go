package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// 各Recordメソッドが対応するカウンターを加算することを確認する。
func TestCollector_RecordCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPushSent()
	c.RecordPushSent()
	c.RecordPushFailure("transport")
	c.RecordPushPruned(3)
	c.RecordReminderFired()
	c.RecordStoreRecovery()

	if got := testutil.ToFloat64(c.pushSent); got != 2 {
		t.Errorf("push_sent_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.pushFail.WithLabelValues("transport")); got != 1 {
		t.Errorf("push_fail_total{reason=transport} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.pushPruned); got != 3 {
		t.Errorf("push_pruned_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.remindersFired); got != 1 {
		t.Errorf("reminders_fired_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.storeRecoveries); got != 1 {
		t.Errorf("store_recoveries_total = %v, want 1", got)
	}
}

// 失敗理由ごとに独立したカウンターが使われることを確認する。
func TestCollector_FailureReasonLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPushFailure("transport")
	c.RecordPushFailure("transport")
	c.RecordPushFailure("status_500")

	if got := testutil.ToFloat64(c.pushFail.WithLabelValues("transport")); got != 2 {
		t.Errorf("reason=transport = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.pushFail.WithLabelValues("status_500")); got != 1 {
		t.Errorf("reason=status_500 = %v, want 1", got)
	}
}

// スクレイプハンドラーが登録済みメトリクスを公開することを確認する。
func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPushSent()
	c.RecordDispatchLatency(120 * time.Millisecond)
	c.RecordReminderFired()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := rec.Body.String()
	for _, name := range []string{
		"matchup_push_sent_total",
		"matchup_dispatch_latency_seconds",
		"matchup_reminders_fired_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output should contain %q", name)
		}
	}
}
