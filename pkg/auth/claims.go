package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/restaurant-backend/pkg/enums"
)

// ErrBranchScope is returned when a branch id rides on a customer token.
var ErrBranchScope = errors.New("branch scope is only valid for staff and admin tokens")

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	BranchID *uuid.UUID
	JTI      string
}

// AccessTokenClaims represents the typed JWT presented by customers and staff.
// BranchID pins staff tokens to the branch they operate.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	Role     enums.ActorRole `json:"role"`
	BranchID *uuid.UUID      `json:"branch_id,omitempty"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims have been checked by the parser.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("user id is required")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid actor role %q", c.Role)
	}
	if c.BranchID != nil && c.Role == enums.ActorRoleCustomer {
		return ErrBranchScope
	}
	return nil
}
