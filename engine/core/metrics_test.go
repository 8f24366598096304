package core

import "testing"

func TestMetricsAverage(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	if got := m.FrameTime(); got < 9.999 || got > 10.001 {
		t.Fatalf("frame time = %f, want 10ms", got)
	}

	// A second window must not accumulate on top of the first.
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.020)
	}
	if got := m.FrameTime(); got < 19.999 || got > 20.001 {
		t.Fatalf("frame time = %f, want 20ms", got)
	}
}

func TestMetricsFPS(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 120; i++ {
		m.Update(0.010)
	}
	fps, _ := m.Frame()
	if fps != 100 {
		t.Fatalf("fps = %f, want 100", fps)
	}
}
