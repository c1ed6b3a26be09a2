package model

import "time"

// RemoteEvent is a calendar event as read from the calendar provider.
type RemoteEvent struct {
	ID         string
	Summary    string
	Start      time.Time
	End        *time.Time
	AllDay     bool
	Location   string
	Visibility string
}

// RemoteTask is an item from the user's task lists.
type RemoteTask struct {
	ID        string
	Title     string
	Notes     string
	Due       *time.Time
	Completed bool
}

// HomeworkItem is one row scraped from the school homework portal. Due is
// kept as displayed.
type HomeworkItem struct {
	Subject     string `json:"subject"`
	Title       string `json:"title"`
	Due         string `json:"due"`
	Description string `json:"description"`
}
