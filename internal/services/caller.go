package services

import (
	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/types"
)

// Caller identifies the authenticated principal a service call acts for.
type Caller struct {
	ID   uuid.UUID
	Role types.Role
}

func (c Caller) IsStudent() bool   { return c.Role == types.RoleStudent }
func (c Caller) IsProfessor() bool { return c.Role == types.RoleProfessor }
func (c Caller) IsAdmin() bool     { return c.Role == types.RoleAdmin }
func (c Caller) IsStaff() bool     { return c.IsProfessor() || c.IsAdmin() }
