package sticker

// CostLine is one priced usage entry in a cost report.
type CostLine struct {
	StickerID string  `json:"stickerId"`
	Count     int     `json:"count"`
	UnitCost  float64 `json:"unitCost"`
	TotalCost float64 `json:"totalCost"`
}

// CostReport is the derived spend summary for a set of usages.
type CostReport struct {
	Lines      []CostLine `json:"lines"`
	GrandTotal float64    `json:"grandTotal"`
}

// ComputeCostReport prices each usage against the catalog. Unrecognized ids
// price at the Unknown entry's zero unit cost. Pure function, no I/O: the
// same inputs always yield the same totals, and the grand total is the sum
// of the per-line totals.
func ComputeCostReport(usages []Usage, catalog Catalog) CostReport {
	report := CostReport{Lines: make([]CostLine, 0, len(usages))}
	for _, u := range usages {
		entry := catalog.Lookup(u.StickerID)
		line := CostLine{
			StickerID: u.StickerID,
			Count:     u.Count,
			UnitCost:  entry.UnitCost,
			TotalCost: float64(u.Count) * entry.UnitCost,
		}
		report.Lines = append(report.Lines, line)
		report.GrandTotal += line.TotalCost
	}
	return report
}
