package models

import "time"

// QueryLog is an append-only record of one generation request.
type QueryLog struct {
	ID               string
	Source           string
	UserID           *int64
	Email            string
	ProcessingTimeMs int64
	ResponseLength   int
	Timestamp        time.Time
}

type QueryStats struct {
	Total           int
	Today           int
	AvgProcessingMs float64
	BySource        map[string]int
}
