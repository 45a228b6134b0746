package dto

// MessageSlotDTO represents one scheduled message definition in a template
type MessageSlotDTO struct {
	DayOffset int    `json:"day_offset" validate:"min=0,max=365" example:"2"`
	TimeOfDay string `json:"time_of_day,omitempty" example:"10:30"`
	SortOrder int    `json:"sort_order" validate:"min=0" example:"0"`
	Body      string `json:"body" validate:"required,max=4096" example:"Hi {{name}}, following up on our chat."`
}

// CreateTemplateRequest represents the request to create a drip template
type CreateTemplateRequest struct {
	Name     string           `json:"name" validate:"required,min=1,max=255" example:"decision_maker"`
	Category string           `json:"category" validate:"required" example:"decision_maker"`
	Slots    []MessageSlotDTO `json:"slots" validate:"required,min=1,dive"`
}

// CreateTemplateResponse represents the result of creating a drip template
type CreateTemplateResponse struct {
	TemplateID uint   `json:"template_id" example:"3"`
	UUID       string `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name       string `json:"name" example:"decision_maker"`
	SlotCount  int    `json:"slot_count" example:"6"`
}

// TemplateDTO represents a drip template with its slots
type TemplateDTO struct {
	ID        uint             `json:"id" example:"3"`
	UUID      string           `json:"uuid"`
	Name      string           `json:"name" example:"decision_maker"`
	Category  string           `json:"category" example:"decision_maker"`
	IsActive  bool             `json:"is_active" example:"true"`
	CreatedAt string           `json:"created_at" example:"2024-01-15T10:30:00Z"`
	Slots     []MessageSlotDTO `json:"slots"`
}

// ListTemplatesResponse represents the template listing
type ListTemplatesResponse struct {
	Templates []TemplateDTO `json:"templates"`
	Total     int           `json:"total" example:"5"`
}
