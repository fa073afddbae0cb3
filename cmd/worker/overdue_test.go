package main

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/events"
	"github.com/landsale/backend/internal/services"
	"go.uber.org/zap"
)

type fakeLister struct {
	items []services.OverdueInstallment
	err   error
}

func (f fakeLister) Overdue(context.Context) ([]services.OverdueInstallment, error) {
	return f.items, f.err
}

type fakeOnce struct {
	claimed map[string]bool
	sent    []events.Event
	failKey string
}

func (f *fakeOnce) PublishOnce(_ context.Context, stream, key string, _ time.Duration, e events.Event) (bool, error) {
	if stream != events.StreamLedger {
		return false, errors.New("wrong stream " + stream)
	}
	if key == f.failKey {
		return false, errors.New("redis down")
	}
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	f.sent = append(f.sent, e)
	return true, nil
}

func overdueItem(token int64, index uint64) services.OverdueInstallment {
	return services.OverdueInstallment{
		Collection: common.HexToAddress("0x00000000000000000000000000000000000c0111"),
		TokenID:    big.NewInt(token),
		Quote:      &services.Quote{Index: index, Scheduled: "100", Required: "110", Late: true},
	}
}

func TestRunOverdueScanPublishesOnce(t *testing.T) {
	lister := fakeLister{items: []services.OverdueInstallment{overdueItem(1, 2), overdueItem(1, 3), overdueItem(2, 2)}}
	pub := &fakeOnce{claimed: map[string]bool{}}

	if n := runOverdueScan(context.Background(), lister, pub, zap.NewNop()); n != 3 {
		t.Fatalf("first scan sent %d, want 3", n)
	}
	if n := runOverdueScan(context.Background(), lister, pub, zap.NewNop()); n != 0 {
		t.Fatalf("second scan sent %d, want 0", n)
	}

	e := pub.sent[0]
	if e.Type != events.EventInstallmentOverdue || e.Payload["token_id"] != "1" || e.Payload["required"] != "110" {
		t.Errorf("event = %+v", e)
	}
}

func TestRunOverdueScanErrors(t *testing.T) {
	if n := runOverdueScan(context.Background(), fakeLister{err: errors.New("db down")}, &fakeOnce{claimed: map[string]bool{}}, zap.NewNop()); n != 0 {
		t.Fatalf("sent %d on list failure", n)
	}

	items := []services.OverdueInstallment{overdueItem(1, 2), overdueItem(1, 3)}
	pub := &fakeOnce{claimed: map[string]bool{}, failKey: overdueKey(items[0])}
	if n := runOverdueScan(context.Background(), fakeLister{items: items}, pub, zap.NewNop()); n != 1 {
		t.Fatalf("sent %d, want 1 after one publish failure", n)
	}
}

func TestOverdueKey(t *testing.T) {
	got := overdueKey(overdueItem(7, 4))
	want := "overdue:" + common.HexToAddress("0x00000000000000000000000000000000000c0111").Hex() + ":7:4"
	if got != want {
		t.Errorf("overdueKey = %q, want %q", got, want)
	}
}
