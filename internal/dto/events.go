package dto

import "cctvmonitor/internal/model"

// EventsPage is the paginated /api/events response.
type EventsPage struct {
	Events      []model.Event `json:"events"`
	Length      int           `json:"length"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Limit       int           `json:"limit"`
}
