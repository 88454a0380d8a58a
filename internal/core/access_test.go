package core

import (
	"testing"

	"agritrace/pkg/domain"
)

func TestInstallAdminOnlyOnce(t *testing.T) {
	f := newFixture(t)
	f.installAdmin("admin-1")

	_, _, err := f.service.InstallAdmin(f.ctx, "admin-2", "hash")
	mustErrAs[domain.PreconditionError](t, err)

	role, err := f.service.RoleOf("admin-1")
	if err != nil || role != RoleAdmin {
		t.Fatalf("admin role not installed: %s %v", role, err)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	f := newFixture(t)

	if _, _, err := f.service.RegisterUser(f.ctx, "eve", RoleAdmin, "hash"); err == nil {
		t.Fatalf("self-registration as admin must fail")
	}
	_, _, err := f.service.RegisterUser(f.ctx, "farmer-1", RoleFarmer, "")
	mustErrAs[domain.InvariantError](t, err)

	f.register("farmer-1", RoleFarmer)
	_, _, err = f.service.RegisterUser(f.ctx, "farmer-1", RoleFarmer, "hash-again")
	mustErrAs[domain.PreconditionError](t, err)

	if got := f.reputation("farmer-1", RoleFarmer); got != 50 {
		t.Fatalf("registration should seed reputation at 50, got %d", got)
	}
}

func TestAssignRoleSeedsReputationIdempotently(t *testing.T) {
	f := newFixture(t)
	f.installAdmin("admin")
	f.register("worker", RoleNone)

	if _, _, err := f.service.AssignRole(f.ctx, "admin", "worker", RoleDistributor); err != nil {
		t.Fatalf("assign role: %v", err)
	}
	if got := f.reputation("worker", RoleDistributor); got != 50 {
		t.Fatalf("first assignment should seed 50, got %d", got)
	}

	// A non-default score survives re-assignment.
	f.setReputation("worker", RoleDistributor, 72)
	if _, _, err := f.service.AssignRole(f.ctx, "admin", "worker", RoleDistributor); err != nil {
		t.Fatalf("re-assign role: %v", err)
	}
	if got := f.reputation("worker", RoleDistributor); got != 72 {
		t.Fatalf("re-assignment must not reset score, got %d", got)
	}
}

func TestAssignRoleRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.register("farmer-1", RoleFarmer)
	f.register("worker", RoleNone)

	_, _, err := f.service.AssignRole(f.ctx, "farmer-1", "worker", RoleRetailer)
	mustErrAs[domain.AuthorizationError](t, err)

	_, _, err = f.service.AssignRole(f.ctx, "ghost", "worker", RoleRetailer)
	mustErrAs[domain.AuthorizationError](t, err)
}

func TestAssignRoleRejectsAdminGrant(t *testing.T) {
	f := newFixture(t)
	f.installAdmin("admin")
	f.register("worker", RoleNone)

	_, _, err := f.service.AssignRole(f.ctx, "admin", "worker", RoleAdmin)
	mustErrAs[domain.InvariantError](t, err)
}

func TestPauseBlocksMutations(t *testing.T) {
	f := newFixture(t)
	f.installAdmin("admin")
	f.register("farmer-1", RoleFarmer)

	if _, err := f.service.Pause(f.ctx, "admin"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	_, _, err := f.service.CreateProduct(f.ctx, "farmer-1", CreateProductInput{})
	mustErrAs[domain.PreconditionError](t, err)

	// Pausing twice is rejected, unpausing restores operation.
	_, err = f.service.Pause(f.ctx, "admin")
	mustErrAs[domain.PreconditionError](t, err)
	if _, err := f.service.Unpause(f.ctx, "admin"); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	f.createProduct("farmer-1", 10)
}

func TestBlacklistBlocksCaller(t *testing.T) {
	f := newFixture(t)
	f.installAdmin("admin")
	f.register("farmer-1", RoleFarmer)

	if _, _, err := f.service.Blacklist(f.ctx, "admin", "farmer-1"); err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	_, _, err := f.service.CreateProduct(f.ctx, "farmer-1", CreateProductInput{})
	mustErrAs[domain.AuthorizationError](t, err)

	if _, _, err := f.service.Unblacklist(f.ctx, "admin", "farmer-1"); err != nil {
		t.Fatalf("unblacklist: %v", err)
	}
	f.createProduct("farmer-1", 10)
}

func TestAdminCannotBlacklistSelf(t *testing.T) {
	f := newFixture(t)
	f.installAdmin("admin")
	_, _, err := f.service.Blacklist(f.ctx, "admin", "admin")
	mustErrAs[domain.InvariantError](t, err)
}
