package ui

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutSplitWidth is the minimum width for a list with a side panel.
	LayoutSplitWidth = 90
)

// Heatmap cell glyphs.
const (
	heatCell  = "■"
	heatEmpty = "·"
)
