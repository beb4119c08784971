package sticker

import (
	"math"
	"testing"
)

func TestComputeCostReport(t *testing.T) {
	catalog := DefaultCatalog()
	usages := []Usage{
		{StickerID: "1", Count: 3}, // 3 * 0.99
		{StickerID: "3", Count: 2}, // 2 * 1.49
	}

	report := ComputeCostReport(usages, catalog)
	if len(report.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(report.Lines))
	}
	if report.Lines[0].TotalCost != 3*0.99 {
		t.Fatalf("unexpected line total %v", report.Lines[0].TotalCost)
	}
	want := 3*0.99 + 2*1.49
	if math.Abs(report.GrandTotal-want) > 1e-9 {
		t.Fatalf("expected grand total %v, got %v", want, report.GrandTotal)
	}
}

func TestComputeCostReportUnknownSticker(t *testing.T) {
	report := ComputeCostReport([]Usage{{StickerID: "999", Count: 5}}, DefaultCatalog())
	if len(report.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(report.Lines))
	}
	if report.Lines[0].UnitCost != 0 || report.Lines[0].TotalCost != 0 {
		t.Fatalf("unknown sticker must cost nothing: %+v", report.Lines[0])
	}
	if report.GrandTotal != 0 {
		t.Fatalf("expected zero total, got %v", report.GrandTotal)
	}
}

func TestComputeCostReportEmpty(t *testing.T) {
	report := ComputeCostReport(nil, DefaultCatalog())
	if len(report.Lines) != 0 || report.GrandTotal != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestLookupFallsBackToUnknown(t *testing.T) {
	c := DefaultCatalog()
	if got := c.Lookup("1"); got.UnitCost != 0.99 {
		t.Fatalf("unexpected entry %+v", got)
	}
	if got := c.Lookup("no-such"); got != Unknown {
		t.Fatalf("expected Unknown fallback, got %+v", got)
	}
}
