package request

type CreateParkingLotRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	TotalSlots    int    `json:"total_slots" validate:"required,min=1,max=10000"`
	PriorityOrder int    `json:"priority_order" validate:"min=0"`
	IsActive      *bool  `json:"is_active,omitempty"`
}

type SweepRequest struct {
	BatchSize int `json:"batch_size" validate:"omitempty,min=1,max=10000"`
}
