package models

// HeatmapBucket is a presentation hint for a heatmap cell.
type HeatmapBucket string

const (
	BucketHighPositive HeatmapBucket = "high-positive"
	BucketHighNegative HeatmapBucket = "high-negative"
	BucketNeutral      HeatmapBucket = "neutral"
)

type HeatmapCell struct {
	Row    string        `json:"row"`
	Column string        `json:"column"`
	Value  float64       `json:"value"`
	Bucket HeatmapBucket `json:"bucket"`
}

// HeatmapData is a render-ready grid. Cells are row-major.
type HeatmapData struct {
	RowLabels    []string      `json:"row_labels"`
	ColumnLabels []string      `json:"column_labels"`
	Cells        []HeatmapCell `json:"cells"`
}
