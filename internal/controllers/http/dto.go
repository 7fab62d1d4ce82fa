package http

import "production-service/internal/domain"

type ChangeStatusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
	Reason string             `json:"reason"`
	Actor  string             `json:"actor"`
}

type UpdateStageRequest struct {
	Status domain.StageStatus `json:"status" binding:"required"`
}

type ReorderRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

type RemakeRequest struct {
	Color    string `json:"color" binding:"required"`
	Size     int    `json:"size" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
	Reason   string `json:"reason"`
}

func (r RemakeRequest) ReturnLog() domain.ReturnLog {
	return domain.ReturnLog{Color: r.Color, Size: r.Size, Quantity: r.Quantity, Reason: r.Reason}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type DeleteResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
