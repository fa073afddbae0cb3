package installments

import (
	"math"
	"math/big"
	"testing"
	"time"
)

// tenthEth returns n * 0.1 ether in wei.
func tenthEth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e17))
}

func TestRequiredOneShot(t *testing.T) {
	p := DefaultPenaltyPolicy()
	base := tenthEth(1)

	tests := []struct {
		name      string
		dueOffset uint64
		elapsed   time.Duration
		want      *big.Int
	}{
		{"before due", 20, 10 * time.Second, tenthEth(1)},
		{"exactly at due", 20, 20 * time.Second, tenthEth(1)},
		{"one second late", 20, 21 * time.Second, big.NewInt(11e16)},
		{"far past due", 20, 10 * time.Hour, big.NewInt(11e16)},
		{"next installment still on time", 30, 22 * time.Second, tenthEth(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Required(base, tt.dueOffset, tt.elapsed)
			if got.Cmp(tt.want) != 0 {
				t.Errorf("Required = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRequiredDoesNotMutateBase(t *testing.T) {
	base := tenthEth(1)
	_ = DefaultPenaltyPolicy().Required(base, 0, time.Minute)
	if base.Cmp(tenthEth(1)) != 0 {
		t.Fatalf("base mutated: %s", base)
	}
}

func TestRequiredGrace(t *testing.T) {
	p := DefaultPenaltyPolicy()
	p.Grace = 5 * time.Second

	if got := p.Required(tenthEth(1), 10, 15*time.Second); got.Cmp(tenthEth(1)) != 0 {
		t.Errorf("inside grace: got %s", got)
	}
	if got := p.Required(tenthEth(1), 10, 16*time.Second); got.Cmp(big.NewInt(11e16)) != 0 {
		t.Errorf("after grace: got %s", got)
	}
}

func TestRequiredStepped(t *testing.T) {
	p := PenaltyPolicy{
		Mode:   PenaltyStepped,
		BPS:    500,
		Period: 10 * time.Second,
		Unit:   time.Second,
	}
	base := big.NewInt(1000)

	tests := []struct {
		elapsed time.Duration
		want    int64
	}{
		{10 * time.Second, 1000},
		{11 * time.Second, 1050},
		{20 * time.Second, 1050},
		{21 * time.Second, 1100},
		{40 * time.Second, 1150},
	}
	for _, tt := range tests {
		t.Run(tt.elapsed.String(), func(t *testing.T) {
			got := p.Required(base, 10, tt.elapsed)
			if got.Int64() != tt.want {
				t.Errorf("Required = %s, want %d", got, tt.want)
			}
		})
	}
}

func TestRequiredHugeOffsetIsNotLate(t *testing.T) {
	p := DefaultPenaltyPolicy()
	const offset = 10_000_000_000

	if due := p.DueAfter(offset); due <= 0 {
		t.Fatalf("DueAfter(%d) = %s, want positive", uint64(offset), due)
	}
	if got := p.Required(big.NewInt(1000), offset, time.Second); got.Int64() != 1000 {
		t.Errorf("Required = %s, want 1000", got)
	}
	if got := p.Required(big.NewInt(1000), math.MaxUint64, time.Duration(math.MaxInt64)); got.Int64() != 1000 {
		t.Errorf("Required at max offset = %s, want 1000", got)
	}
}

func TestRequiredSteppedLongOverdue(t *testing.T) {
	p := PenaltyPolicy{
		Mode:   PenaltyStepped,
		BPS:    500,
		Period: time.Nanosecond,
		Unit:   time.Second,
	}
	elapsed := 200 * 365 * 24 * time.Hour
	steps := int64(elapsed - 10*time.Second)

	// 1000 + 1000*500*steps/10000
	want := new(big.Int).Mul(big.NewInt(50), big.NewInt(steps))
	want.Add(want, big.NewInt(1000))

	got := p.Required(big.NewInt(1000), 10, elapsed)
	if got.Cmp(want) != 0 {
		t.Errorf("Required = %s, want %s", got, want)
	}
	if got.Sign() <= 0 {
		t.Errorf("Required went non-positive: %s", got)
	}
}

func TestRequiredUnit(t *testing.T) {
	p := DefaultPenaltyPolicy()
	p.Unit = 24 * time.Hour

	if got := p.Required(tenthEth(1), 1, 23*time.Hour); got.Cmp(tenthEth(1)) != 0 {
		t.Errorf("within first day: got %s", got)
	}
	if got := p.Required(tenthEth(1), 1, 25*time.Hour); got.Cmp(big.NewInt(11e16)) != 0 {
		t.Errorf("after first day: got %s", got)
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *PenaltyPolicy)
		wantErr bool
	}{
		{"default", func(p *PenaltyPolicy) {}, false},
		{"unknown mode", func(p *PenaltyPolicy) { p.Mode = "compound" }, true},
		{"stepped without period", func(p *PenaltyPolicy) { p.Mode = PenaltyStepped }, true},
		{"stepped with period", func(p *PenaltyPolicy) { p.Mode = PenaltyStepped; p.Period = time.Hour }, false},
		{"negative bps", func(p *PenaltyPolicy) { p.BPS = -1 }, true},
		{"negative grace", func(p *PenaltyPolicy) { p.Grace = -time.Second }, true},
		{"zero unit", func(p *PenaltyPolicy) { p.Unit = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPenaltyPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
