package leads

// CreateLeadInput carries validated fields for lead creation.
type CreateLeadInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,max=50"`
	Company string `json:"company" validate:"omitempty,max=200"`
	Source  string `json:"source" validate:"omitempty,max=100"`
}

// UpdateLeadInput carries partial updates; nil fields are left untouched.
type UpdateLeadInput struct {
	Name    *string `json:"name" validate:"omitempty,max=200"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Company *string `json:"company" validate:"omitempty,max=200"`
	Source  *string `json:"source" validate:"omitempty,max=100"`
	Status  *string `json:"status" validate:"omitempty,oneof=new contacted qualified converted lost"`
}

// AssignLeadInput names the user a lead is handed to.
type AssignLeadInput struct {
	AssignedTo int64 `json:"assigned_to" validate:"required,gt=0"`
}
