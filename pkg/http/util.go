package http

import (
	"time"

	xutil "FinCorr/pkg/util"
)

// ParseFloatDefault parses a query value or returns def when it is empty.
func ParseFloatDefault(s string, def float64) (float64, error) { return xutil.ParseFloatDefault(s, def) }

// ParseDate parses a calendar day; empty input yields the zero time.
func ParseDate(s string) (time.Time, error) { return xutil.ParseDate(s) }

// ParseList splits a comma separated query value.
func ParseList(s string) []string { return xutil.SplitList(s) }
