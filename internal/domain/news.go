package domain

import "time"

type NewsItem struct {
	ID           string
	Title        string
	Date         time.Time
	Acknowledged bool
	Content      string
	Author       string
	Category     string
	Read         bool
}
