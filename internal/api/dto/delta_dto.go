package dto

import (
	"time"

	"github.com/spec-kit/sync-service/internal/domain"
)

// DeltaQuery captures query parameters for the delta endpoint.
type DeltaQuery struct {
	Cursor string `query:"cursor"`
	Limit  int    `query:"limit"`
}

// DeltaItemResponse is one compacted change handed to the sync client.
type DeltaItemResponse struct {
	ID          string            `json:"id"`
	ItemID      string            `json:"item_id"`
	ItemName    string            `json:"item_name"`
	Type        domain.ChangeType `json:"type"`
	UpdatedTime time.Time         `json:"updated_time"`
	ContentTime *time.Time        `json:"content_time,omitempty"`
}

// DeltaResponse is one feed page.
type DeltaResponse struct {
	Items   []DeltaItemResponse `json:"items"`
	Cursor  string              `json:"cursor"`
	HasMore bool                `json:"has_more"`
}
