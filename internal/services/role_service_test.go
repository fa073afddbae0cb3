package services

import (
	"errors"
	"math/big"
	"testing"

	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/models"
	"github.com/landsale/backend/internal/rbac"
)

func TestGrantRevoke(t *testing.T) {
	f := newFixture(t)
	validator, stranger := newAccount(t), newAccount(t)
	granted := f.pub.count(events.EventRoleGranted)

	if err := f.roles.Grant(f.ctx, f.sale(), stranger.addr, rbac.ValidatorRole, validator.addr); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("stranger grant: err = %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := f.roles.Grant(f.ctx, f.sale(), f.dev.addr, rbac.ValidatorRole, validator.addr); err != nil {
			t.Fatal(err)
		}
	}
	if n := f.pub.count(events.EventRoleGranted) - granted; n != 1 {
		t.Errorf("role_granted events = %d, want 1", n)
	}
	if ok, _ := f.roles.HasRole(f.ctx, f.sale(), rbac.ValidatorRole, validator.addr); !ok {
		t.Fatal("grant not visible")
	}
	// scoped to the sale only
	if ok, _ := f.roles.HasRole(f.ctx, f.collection(), rbac.ValidatorRole, validator.addr); ok {
		t.Fatal("grant leaked to another scope")
	}

	if err := f.roles.Revoke(f.ctx, f.sale(), stranger.addr, rbac.ValidatorRole, validator.addr); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("stranger revoke: err = %v", err)
	}
	if err := f.roles.Revoke(f.ctx, f.sale(), f.dev.addr, rbac.ValidatorRole, validator.addr); err != nil {
		t.Fatal(err)
	}
	if err := f.roles.Revoke(f.ctx, f.sale(), f.dev.addr, rbac.ValidatorRole, validator.addr); err != nil {
		t.Fatal(err)
	}
	if n := f.pub.count(events.EventRoleRevoked); n != 1 {
		t.Errorf("role_revoked events = %d, want 1", n)
	}
}

func TestDirectMint(t *testing.T) {
	f := newFixture(t)
	holder := newAccount(t)
	req := MintRequest{
		Collection: f.collection(),
		Minter:     f.dev.addr,
		To:         holder.addr,
		TokenID:    big.NewInt(7),
		LandType:   2,
		MetadataID: 1,
	}

	if _, err := f.collections.Mint(f.ctx, req); !errors.Is(err, models.ErrUnauthorized) {
		t.Fatalf("mint without MINTER: err = %v", err)
	}
	if err := f.roles.Grant(f.ctx, f.collection(), f.dev.addr, rbac.MinterRole, f.dev.addr); err != nil {
		t.Fatal(err)
	}
	if _, err := f.collections.Mint(f.ctx, req); err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if _, err := f.collections.Mint(f.ctx, req); !errors.Is(err, models.ErrTokenExists) {
		t.Fatalf("second mint: err = %v", err)
	}

	n, err := f.collections.BalanceOf(f.ctx, f.collection(), holder.addr)
	if err != nil || n != 1 {
		t.Errorf("BalanceOf = %d, %v", n, err)
	}
	uri, err := f.collections.TokenURI(f.ctx, f.collection(), big.NewInt(7))
	if err != nil || uri != "ipfs://land/7" {
		t.Errorf("TokenURI = %q, %v", uri, err)
	}
	if _, err := f.collections.TokenURI(f.ctx, f.collection(), big.NewInt(8)); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("TokenURI unknown: err = %v", err)
	}
}
