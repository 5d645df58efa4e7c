package dto

// ReviewRequirementRequest captures an adviser verdict on one requirement.
// RequirementKey is the requirement id; legacy clients may send the title.
type ReviewRequirementRequest struct {
	RequirementKey string `json:"requirementKey" validate:"required,max=200"`
	Status         string `json:"status" validate:"required,oneof=approved accepted rejected denied pending"`
	Reason         string `json:"reason" validate:"max=1000"`
	Notes          string `json:"notes" validate:"max=2000"`
}
