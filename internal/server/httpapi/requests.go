package httpapi

import "github.com/dmitrijs2005/shopkeeper/internal/server/services"

// Pointer fields tell "absent" apart from a zero value.

type registerRequest struct {
	Name                 *string `json:"name" validate:"required,notblank,max=255"`
	Email                *string `json:"email" validate:"required,notblank,email,max=255"`
	Password             *string `json:"password" validate:"required,notblank,min=6"`
	PasswordConfirmation *string `json:"password_confirmation"`
	Age                  *int    `json:"age" validate:"required,min=1"`
	MembershipStatus     *bool   `json:"membership_status"`
}

func (r registerRequest) input() services.CreateUserInput {
	in := services.CreateUserInput{
		Name:     *r.Name,
		Email:    *r.Email,
		Password: *r.Password,
		Age:      *r.Age,
	}
	if r.MembershipStatus != nil {
		in.MembershipStatus = *r.MembershipStatus
	}
	return in
}

type createUserRequest struct {
	Name                 *string `json:"name" validate:"required,notblank,max=255"`
	Email                *string `json:"email" validate:"required,notblank,email,max=255"`
	Password             *string `json:"password" validate:"required,notblank,min=6"`
	PasswordConfirmation *string `json:"password_confirmation"`
	Age                  *int    `json:"age" validate:"required,min=1"`
	MembershipStatus     *bool   `json:"membership_status" validate:"required"`
}

func (r createUserRequest) input() services.CreateUserInput {
	return services.CreateUserInput{
		Name:             *r.Name,
		Email:            *r.Email,
		Password:         *r.Password,
		Age:              *r.Age,
		MembershipStatus: *r.MembershipStatus,
	}
}

type updateUserRequest struct {
	Name                 *string `json:"name" validate:"omitempty,notblank,max=255"`
	Email                *string `json:"email" validate:"omitempty,notblank,email,max=255"`
	Password             *string `json:"password" validate:"omitempty,notblank,min=6"`
	PasswordConfirmation *string `json:"password_confirmation"`
	Age                  *int    `json:"age" validate:"omitempty,min=1"`
	MembershipStatus     *bool   `json:"membership_status"`
}

func (r updateUserRequest) input() services.UpdateUserInput {
	return services.UpdateUserInput{
		Name:             r.Name,
		Email:            r.Email,
		Password:         r.Password,
		Age:              r.Age,
		MembershipStatus: r.MembershipStatus,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// orderRequest takes total_amount as any JSON value so that numeric strings
// are accepted as well as numbers. Presence is checked by the handler since
// a zero amount is valid.
type orderRequest struct {
	TotalAmount any `json:"total_amount"`
}
