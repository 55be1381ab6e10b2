package schedule

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		kind    Kind
		str     string
		wantErr bool
	}{
		{raw: "", kind: KindDisabled, str: "-"},
		{raw: "off", kind: KindDisabled, str: "-"},
		{raw: "0", kind: KindDisabled, str: "-"},
		{raw: "120", kind: KindFixed, str: "120s"},
		{raw: "0.8", kind: KindFixed, str: "0.8s"},
		{raw: "1500ms", kind: KindFixed, str: "1.5s"},
		{raw: "0.8-2", kind: KindRange, str: "0.8–2s"},
		{raw: "15s-20s", kind: KindRange, str: "15–20s"},
		{raw: "15–20", kind: KindRange, str: "15–20s"},
		{raw: "cron:*/5 * * * * *", kind: KindCron, str: "cron:*/5 * * * * *"},
		{raw: "@every 1m", kind: KindCron, str: "cron:@every 1m"},
		{raw: "-5", wantErr: true},
		{raw: "0.0000000001", wantErr: true},
		{raw: "0.0000000001-1", wantErr: true},
		{raw: "2-1", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "cron:not a cron", wantErr: true},
		{raw: "cron:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p, err := Parse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %+v", tt.raw, p)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if p.Kind != tt.kind {
				t.Fatalf("Parse(%q).Kind = %v, want %v", tt.raw, p.Kind, tt.kind)
			}
			if got := p.String(); got != tt.str {
				t.Fatalf("Parse(%q).String() = %q, want %q", tt.raw, got, tt.str)
			}
		})
	}
}

func TestConstructorsReject(t *testing.T) {
	t.Parallel()
	if _, err := Fixed(0); !errors.Is(err, ErrNonPositive) {
		t.Fatalf("Fixed(0) err = %v, want ErrNonPositive", err)
	}
	if _, err := Range(2*time.Second, time.Second); !errors.Is(err, ErrInvertedRange) {
		t.Fatalf("Range(2s,1s) err = %v, want ErrInvertedRange", err)
	}
	if _, err := Range(0, time.Second); !errors.Is(err, ErrNonPositive) {
		t.Fatalf("Range(0,1s) err = %v, want ErrNonPositive", err)
	}
}

func TestSampleRangeBounds(t *testing.T) {
	t.Parallel()
	lo, hi := 800*time.Millisecond, 2*time.Second
	p, err := Range(lo, hi)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	seen := map[time.Duration]bool{}
	for i := 0; i < 1000; i++ {
		d := p.Sample(time.Time{}, rng)
		if d < lo || d >= hi {
			t.Fatalf("sample %s out of [%s, %s)", d, lo, hi)
		}
		seen[d] = true
	}
	if len(seen) < 2 {
		t.Fatalf("range samples are constant")
	}
}

func TestSampleDegenerateRange(t *testing.T) {
	t.Parallel()
	p, err := Range(time.Second, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if d := p.Sample(time.Time{}, rand.New(rand.NewSource(1))); d != time.Second {
		t.Fatalf("Sample = %s, want 1s", d)
	}
}

func TestSampleFixedAndDisabled(t *testing.T) {
	t.Parallel()
	p, _ := Fixed(3 * time.Second)
	if d := p.Sample(time.Time{}, nil); d != 3*time.Second {
		t.Fatalf("fixed Sample = %s", d)
	}
	if d := Disabled().Sample(time.Time{}, nil); d != 0 {
		t.Fatalf("disabled Sample = %s, want 0", d)
	}
	if Disabled().Enabled() {
		t.Fatalf("disabled policy reports enabled")
	}
}

func TestSampleCron(t *testing.T) {
	t.Parallel()
	p, err := Cron("*/5 * * * * *")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)
	if d := p.Sample(now, nil); d != 4*time.Second {
		t.Fatalf("cron Sample = %s, want 4s", d)
	}
}
