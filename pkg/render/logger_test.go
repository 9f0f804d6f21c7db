package render

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/taigrr/facet/pkg/math3d"
)

func TestLoggerDefaultDiscards(t *testing.T) {
	if Logger().Enabled(t.Context(), slog.LevelError) {
		t.Error("default logger should be disabled")
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { SetLogger(nil) })

	p, _ := createTestPipeline(8, 8)
	if err := p.DrawMesh(unitTriangle(), math3d.Identity(), nil); err != nil {
		t.Fatal(err)
	}
	p.EndFrame()

	out := buf.String()
	if !strings.Contains(out, "msg=frame") || !strings.Contains(out, "triangles=1") {
		t.Errorf("frame stats not logged: %q", out)
	}

	SetLogger(nil)
	if Logger().Enabled(t.Context(), slog.LevelError) {
		t.Error("SetLogger(nil) did not restore the discarding logger")
	}
}
