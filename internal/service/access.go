package service

import "ehrledger/internal/domain"

// AccessService computes the slice of the ledger a caller may see. It is a
// pure function over (caller, requested filter) and must sit in front of
// every read path, including analytics and chat.
type AccessService struct{}

// NewAccessService creates an AccessService.
func NewAccessService() *AccessService {
	return &AccessService{}
}

// Scope merges the caller's role predicate with the requested filter by
// logical AND:
//
//   - doctor:  entries the doctor authored (actor_id == caller)
//   - auditor: unrestricted
//   - patient: entries about the caller's own patient identity
//
// A patient asking for a different patient_id gets the fail-closed empty
// filter: an empty result, never an error and never someone else's data.
// Unknown roles also fail closed.
func (s *AccessService) Scope(caller domain.Caller, requested domain.EntryFilter) domain.EntryFilter {
	var role domain.EntryFilter
	switch caller.Role {
	case domain.RoleDoctor:
		role = domain.EntryFilter{ActorID: caller.ID}
	case domain.RoleAuditor:
		role = domain.EntryFilter{}
	case domain.RolePatient:
		role = domain.EntryFilter{PatientID: caller.ID}
	default:
		return domain.EntryFilter{None: true}
	}
	return role.Narrow(requested)
}
