package dto

// SubscribeMessage declares a websocket client's audience.
type SubscribeMessage struct {
	Type       string `json:"type" validate:"required,eq=subscribe"`
	SchoolID   string `json:"schoolId" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=office teacher parent"`
	HomeroomID string `json:"homeroomId" validate:"required_if=Role teacher,max=64"`
}
