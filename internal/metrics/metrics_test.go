package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBatchObserver(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(realizationsTotal.WithLabelValues(resultError))
	stormsBefore := testutil.ToFloat64(stormsSimulated)

	var obs BatchObserver
	obs.RealizationDone(10*time.Millisecond, 40, nil)
	obs.RealizationDone(5*time.Millisecond, 3, errors.New("sampling"))

	if got := testutil.ToFloat64(realizationsTotal.WithLabelValues(resultError)) - before; got != 1 {
		t.Errorf("error realizations = %v, expected 1", got)
	}
	if got := testutil.ToFloat64(stormsSimulated) - stormsBefore; got != 43 {
		t.Errorf("storms simulated = %v, expected 43", got)
	}

	SetStormsDetected(17)
	if got := testutil.ToFloat64(stormsDetected); got != 17 {
		t.Errorf("storms detected = %v, expected 17", got)
	}
}

func TestServer(t *testing.T) {
	Init()
	ObserveStage("fit", 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer("127.0.0.1:0", nil)
	addr, err := s.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `coastretreat_pipeline_stage_total{result="success",stage="fit"}`) {
		t.Errorf("stage counter missing from /metrics output")
	}

	resp, err = http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/healthz status %d", resp.StatusCode)
	}

	cancel()
	s.Wait()
}
