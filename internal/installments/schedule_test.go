package installments

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/landsale/backend/internal/models"
)

var testCollection = common.HexToAddress("0x00000000000000000000000000000000000c011e")

func tenSteps() ([]uint64, []*big.Int) {
	offsets := make([]uint64, 10)
	amounts := make([]*big.Int, 10)
	for i := range offsets {
		offsets[i] = uint64(10 * (i + 1))
		amounts[i] = tenthEth(1)
	}
	return offsets, amounts
}

func TestBuildSchedule(t *testing.T) {
	offsets, amounts := tenSteps()
	s, err := BuildSchedule(DefaultPenaltyPolicy(), testCollection, 1, tenthEth(10), offsets, amounts, time.Unix(100, 0))
	if err != nil {
		t.Fatalf("BuildSchedule: %v", err)
	}
	if len(s.Entries) != 10 || s.Entries[9].Offset != 100 {
		t.Fatalf("unexpected entries: %+v", s.Entries)
	}

	amounts[0].SetInt64(7)
	if s.Entries[0].Amount.Cmp(tenthEth(1)) != 0 {
		t.Fatal("schedule shares memory with input amounts")
	}
}

func TestBuildScheduleRejects(t *testing.T) {
	one := tenthEth(1)
	tests := []struct {
		name    string
		total   *big.Int
		offsets []uint64
		amounts []*big.Int
	}{
		{"empty", tenthEth(1), nil, nil},
		{"length mismatch", tenthEth(2), []uint64{1, 2}, []*big.Int{one}},
		{"equal offsets", tenthEth(2), []uint64{5, 5}, []*big.Int{one, one}},
		{"decreasing offsets", tenthEth(2), []uint64{6, 5}, []*big.Int{one, one}},
		{"zero amount", tenthEth(1), []uint64{1, 2}, []*big.Int{one, big.NewInt(0)}},
		{"sum below total", tenthEth(3), []uint64{1, 2}, []*big.Int{one, one}},
		{"sum above total", tenthEth(1), []uint64{1, 2}, []*big.Int{one, one}},
		{"zero total", big.NewInt(0), []uint64{1}, []*big.Int{one}},
		{"offset beyond duration range", tenthEth(1), []uint64{10_000_000_000}, []*big.Int{one}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSchedule(DefaultPenaltyPolicy(), testCollection, 1, tt.total, tt.offsets, tt.amounts, time.Now())
			if !errors.Is(err, models.ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestBuildScheduleOffsetBound(t *testing.T) {
	p := DefaultPenaltyPolicy()
	p.Unit = 24 * time.Hour
	one := []*big.Int{tenthEth(1)}

	if _, err := BuildSchedule(p, testCollection, 1, tenthEth(1), []uint64{106_751}, one, time.Now()); err != nil {
		t.Fatalf("largest representable offset rejected: %v", err)
	}
	_, err := BuildSchedule(p, testCollection, 1, tenthEth(1), []uint64{106_752}, one, time.Now())
	if !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}

	p.Grace = time.Hour
	if p.MaxOffset() != 106_751 {
		t.Errorf("MaxOffset with grace = %d, want 106751", p.MaxOffset())
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	offsets, amounts := tenSteps()
	s, err := BuildSchedule(DefaultPenaltyPolicy(), testCollection, 1, tenthEth(10), offsets, amounts, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	plan := Snapshot(s, big.NewInt(1), time.Unix(1000, 0))
	s.Entries[0].Amount.SetInt64(1)
	s.Entries[0].Offset = 999

	first, ok := plan.Entry(1)
	if !ok {
		t.Fatal("entry 1 missing")
	}
	if first.Index != 1 || first.DueOffset != 10 || first.ScheduledAmount.Cmp(tenthEth(1)) != 0 {
		t.Fatalf("plan changed with schedule: %+v", first)
	}
	if _, ok := plan.Entry(0); ok {
		t.Fatal("index 0 must not exist")
	}
	if _, ok := plan.Entry(11); ok {
		t.Fatal("index 11 must not exist")
	}
}

// Ten installments every 10s; at 22s the second one is late and the third is not.
func TestQuoteScenario(t *testing.T) {
	offsets, amounts := tenSteps()
	s, _ := BuildSchedule(DefaultPenaltyPolicy(), testCollection, 1, tenthEth(10), offsets, amounts, time.Now())
	start := time.Unix(1_700_000_000, 0)
	plan := Snapshot(s, big.NewInt(42), start)
	p := DefaultPenaltyPolicy()
	elapsed := start.Add(22 * time.Second).Sub(plan.StartedAt)

	second, _ := plan.Entry(2)
	if got := p.Required(second.ScheduledAmount, second.DueOffset, elapsed); got.Cmp(big.NewInt(11e16)) != 0 {
		t.Errorf("installment 2: got %s, want 0.11 ether", got)
	}
	third, _ := plan.Entry(3)
	if got := p.Required(third.ScheduledAmount, third.DueOffset, elapsed); got.Cmp(tenthEth(1)) != 0 {
		t.Errorf("installment 3: got %s, want 0.1 ether", got)
	}

	overdue := Overdue(p, plan, start.Add(22*time.Second))
	if len(overdue) != 2 || overdue[0].Index != 1 || overdue[1].Index != 2 {
		t.Errorf("overdue = %+v, want indexes 1 and 2", overdue)
	}
}

func TestCheckOrder(t *testing.T) {
	offsets, amounts := tenSteps()
	s, _ := BuildSchedule(DefaultPenaltyPolicy(), testCollection, 1, tenthEth(10), offsets, amounts, time.Now())
	plan := Snapshot(s, big.NewInt(1), time.Now())

	if err := CheckOrder(OrderAny, plan, 3); err != nil {
		t.Errorf("any order: %v", err)
	}
	if err := CheckOrder(OrderSequential, plan, 1); err != nil {
		t.Errorf("sequential first: %v", err)
	}
	if err := CheckOrder(OrderSequential, plan, 3); !errors.Is(err, models.ErrOutOfOrder) {
		t.Errorf("sequential skip: err = %v", err)
	}

	plan.Installments[0].Paid = true
	plan.Installments[1].Paid = true
	if err := CheckOrder(OrderSequential, plan, 3); err != nil {
		t.Errorf("sequential after paying 1,2: %v", err)
	}
}
