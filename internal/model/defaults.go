package model

import "time"

// Shared defaults used by the CLI, the API server, and the dashboard.
const (
	DefaultAPIAddr         = "127.0.0.1:8501"
	DefaultTopN            = 10
	DefaultScanTopN        = 5
	DefaultQueryTimeout    = 30 * time.Second
	DefaultDescribeTimeout = 10 * time.Second
	DefaultExportName      = "Filtered_Logs.csv"
	NoExplanation          = "no explanation available"
)
