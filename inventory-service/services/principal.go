package services

import "github.com/google/uuid"

// Principal is the identity the session layer resolved for the caller: an
// (organization, role) pair plus the acting user. The engine treats a
// "switched" admin context and a real login identically — both arrive here
// as the same pair.
type Principal struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           string
}
