package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sync-service/internal/api/dto"
	"github.com/spec-kit/sync-service/internal/auth"
	"github.com/spec-kit/sync-service/internal/service"
	apperrors "github.com/spec-kit/sync-service/pkg/util"
)

// DeltaHandler serves the paginated change feed.
type DeltaHandler struct {
	deltas *service.DeltaService
}

// NewDeltaHandler returns a new handler instance.
func NewDeltaHandler(deltas *service.DeltaService) *DeltaHandler {
	return &DeltaHandler{deltas: deltas}
}

// Delta handles GET /api/v1/sync/delta.
func (h *DeltaHandler) Delta(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing principal")
	}

	var query dto.DeltaQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query parameters", nil)
	}

	page, err := h.deltas.Delta(c.UserContext(), principal.UserID, service.DeltaRequest{
		Cursor: query.Cursor,
		Limit:  query.Limit,
	})
	if err != nil {
		return err
	}

	return c.JSON(toDeltaResponse(page))
}

func toDeltaResponse(page *service.DeltaPage) dto.DeltaResponse {
	items := make([]dto.DeltaItemResponse, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, dto.DeltaItemResponse{
			ID:          item.Change.ID,
			ItemID:      item.Change.ItemID,
			ItemName:    item.Change.ItemName,
			Type:        item.Change.Type,
			UpdatedTime: item.Change.CreatedTime,
			ContentTime: item.ContentTime,
		})
	}
	return dto.DeltaResponse{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	}
}
