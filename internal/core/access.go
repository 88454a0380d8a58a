package core

import (
	"context"

	"agritrace/pkg/domain"
)

// InstallAdmin bootstraps the first administrator. It only succeeds while no
// admin exists; afterwards role management goes through AssignRole.
func (s *Service) InstallAdmin(ctx context.Context, actorID, detailHash string) (Actor, Result, error) {
	var created Actor
	var res Result
	err := s.instrument(ctx, "install_admin", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			for _, a := range tx.Snapshot().ListActors() {
				if a.Role == RoleAdmin {
					return domain.PreconditionError{
						Entity: EntityActor,
						ID:     a.ID,
						Reason: "an administrator is already installed",
					}
				}
			}
			if actorID == "" {
				return domain.InvariantError{Field: "actor_id", Reason: "must not be empty"}
			}
			if _, exists := tx.FindActor(actorID); exists {
				return domain.PreconditionError{
					Entity: EntityActor,
					ID:     actorID,
					Reason: "actor is already registered",
				}
			}
			created, err = tx.CreateActor(Actor{
				Base:       Base{ID: actorID},
				Role:       RoleAdmin,
				DetailHash: detailHash,
			})
			return err
		})
		return err
	})
	return created, res, err
}

// RegisterUser records a new participant under a self-selected custody role.
// The admin role can never be self-assigned; it is granted only through
// InstallAdmin. The reputation score for the chosen role is seeded to the
// neutral midpoint.
func (s *Service) RegisterUser(ctx context.Context, actorID string, role Role, detailHash string) (Actor, Result, error) {
	var created Actor
	var res Result
	err := s.instrument(ctx, "register_user", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := ensureRunning(tx); err != nil {
				return err
			}
			if actorID == "" {
				return domain.InvariantError{Field: "actor_id", Reason: "must not be empty"}
			}
			if detailHash == "" {
				return domain.InvariantError{Field: "detail_hash", Reason: "must not be empty"}
			}
			switch role {
			case RoleFarmer, RoleDistributor, RoleRetailer, RoleNone:
			default:
				return domain.InvariantError{
					Field:  "role",
					Reason: "cannot self-register as " + string(role),
				}
			}
			if _, exists := tx.FindActor(actorID); exists {
				return domain.PreconditionError{
					Entity: EntityActor,
					ID:     actorID,
					Reason: "actor is already registered",
				}
			}
			reputation := map[Role]int{}
			if role != RoleNone {
				reputation[role] = 50
			}
			created, err = tx.CreateActor(Actor{
				Base:       Base{ID: actorID},
				Role:       role,
				DetailHash: detailHash,
				Reputation: reputation,
			})
			return err
		})
		return err
	})
	return created, res, err
}

// AssignRole grants a custody role to a registered actor. The reputation
// score for the granted role is seeded to the neutral midpoint only when the
// actor has never held it before; a returning actor keeps their history.
func (s *Service) AssignRole(ctx context.Context, caller, target string, role Role) (Actor, Result, error) {
	var updated Actor
	var res Result
	err := s.instrument(ctx, "assign_role", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, err := requireAdmin(tx, caller); err != nil {
				return err
			}
			switch role {
			case RoleFarmer, RoleDistributor, RoleRetailer:
			default:
				return domain.InvariantError{
					Field:  "role",
					Reason: "must be farmer, distributor, or retailer",
				}
			}
			if _, ok := tx.FindActor(target); !ok {
				return domain.NotFoundError{Entity: EntityActor, ID: target}
			}
			updated, err = tx.UpdateActor(target, func(a *Actor) error {
				a.Role = role
				if a.Reputation == nil {
					a.Reputation = map[Role]int{}
				}
				if a.Reputation[role] == 0 {
					a.Reputation[role] = 50
				}
				return nil
			})
			return err
		})
		return err
	})
	return updated, res, err
}

// Pause engages the emergency switch, blocking all non-admin mutations.
func (s *Service) Pause(ctx context.Context, caller string) (Result, error) {
	return s.setPaused(ctx, caller, "pause", true)
}

// Unpause releases the emergency switch.
func (s *Service) Unpause(ctx context.Context, caller string) (Result, error) {
	return s.setPaused(ctx, caller, "unpause", false)
}

func (s *Service) setPaused(ctx context.Context, caller, operation string, paused bool) (Result, error) {
	var res Result
	err := s.instrument(ctx, operation, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if _, err := requireAdmin(tx, caller); err != nil {
				return err
			}
			if tx.System().Paused == paused {
				reason := "operations are already running"
				if paused {
					reason = "operations are already paused"
				}
				return domain.PreconditionError{Entity: EntitySystem, ID: "system", Reason: reason}
			}
			_, err := tx.UpdateSystem(func(sys *System) error {
				sys.Paused = paused
				return nil
			})
			return err
		})
		return err
	})
	return res, err
}

// Blacklist bans an actor from all operations until unblacklisted.
func (s *Service) Blacklist(ctx context.Context, caller, target string) (Actor, Result, error) {
	return s.setBlacklisted(ctx, caller, target, "blacklist", true)
}

// Unblacklist restores a banned actor.
func (s *Service) Unblacklist(ctx context.Context, caller, target string) (Actor, Result, error) {
	return s.setBlacklisted(ctx, caller, target, "unblacklist", false)
}

func (s *Service) setBlacklisted(ctx context.Context, caller, target, operation string, banned bool) (Actor, Result, error) {
	var updated Actor
	var res Result
	err := s.instrument(ctx, operation, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			admin, err := requireAdmin(tx, caller)
			if err != nil {
				return err
			}
			if admin.ID == target {
				return domain.InvariantError{Field: "target", Reason: "admins cannot blacklist themselves"}
			}
			if _, ok := tx.FindActor(target); !ok {
				return domain.NotFoundError{Entity: EntityActor, ID: target}
			}
			updated, err = tx.UpdateActor(target, func(a *Actor) error {
				a.Blacklisted = banned
				return nil
			})
			return err
		})
		return err
	})
	return updated, res, err
}

// RoleOf returns the role held by a registered actor.
func (s *Service) RoleOf(actorID string) (Role, error) {
	actor, ok := s.store.GetActor(actorID)
	if !ok {
		return RoleNone, domain.NotFoundError{Entity: EntityActor, ID: actorID}
	}
	return actor.Role, nil
}

// ReputationOf returns an actor's score for a role, zero when unseeded.
func (s *Service) ReputationOf(actorID string, role Role) (int, error) {
	actor, ok := s.store.GetActor(actorID)
	if !ok {
		return 0, domain.NotFoundError{Entity: EntityActor, ID: actorID}
	}
	return actor.ReputationFor(role), nil
}
