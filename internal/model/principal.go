package model

import "github.com/google/uuid"

type Principal struct {
	UserID uuid.UUID
	Role   string
}

func (p Principal) IsAdmin() bool   { return p.Role == "ADMIN" }
func (p Principal) IsEncoder() bool { return p.Role == "ENCODER" }
func (p Principal) IsDriver() bool  { return p.Role == "DRIVER" }
