package models

import "time"

// ClosePoint is one daily closing price.
type ClosePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}
