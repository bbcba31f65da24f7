package score

import "testing"

func TestConcentration_Anchors(t *testing.T) {
	cases := map[float64]float64{
		0:   30,
		20:  30,
		25:  26.25,
		40:  15,
		60:  7.5,
		80:  0,
		100: 0,
	}
	for p, want := range cases {
		if got := Concentration(p); got != want {
			t.Errorf("Concentration(%v)=%v want %v", p, got, want)
		}
	}
}

func TestConcentration_NonIncreasingAndContinuous(t *testing.T) {
	prev := Concentration(0)
	for p := 0.0; p <= 100; p += 0.25 {
		got := Concentration(p)
		if got > prev {
			t.Fatalf("score increased at p=%v: %v > %v", p, got, prev)
		}
		if prev-got > 0.25*0.75+1e-9 {
			t.Fatalf("discontinuity at p=%v: %v -> %v", p, prev, got)
		}
		prev = got
	}
}

func TestConcentrationRisk_Boundaries(t *testing.T) {
	cases := []struct {
		p    float64
		want Risk
	}{
		{20, Low},
		{20.0001, Medium},
		{40, Medium},
		{40.0001, High},
		{60, High},
		{60.0001, Extreme},
		{85, Extreme},
	}
	for _, c := range cases {
		if got := ConcentrationRisk(c.p); got != c.want {
			t.Errorf("ConcentrationRisk(%v)=%s want %s", c.p, got, c.want)
		}
	}
}

func TestActivity_Anchors(t *testing.T) {
	cases := []struct {
		n     float64
		score float64
		risk  Risk
	}{
		{0, 0, High},
		{25, 10, High},
		{49.99, 20, High},
		{50, 20, Medium},
		{175, 30, Medium},
		{300, 40, Low},
		{1e6, 40, Low},
	}
	for _, c := range cases {
		s, r := Activity(c.n)
		if s != c.score || r != c.risk {
			t.Errorf("Activity(%v)=(%v,%s) want (%v,%s)", c.n, s, r, c.score, c.risk)
		}
	}
}

func TestActivity_NonDecreasing(t *testing.T) {
	prev, _ := Activity(0)
	for n := 0.0; n <= 400; n += 0.5 {
		s, _ := Activity(n)
		if s < prev {
			t.Fatalf("score decreased at n=%v", n)
		}
		prev = s
	}
}
