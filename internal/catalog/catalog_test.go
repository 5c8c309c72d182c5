package catalog

import "testing"

func TestApplyDefaultsMinInvestment(t *testing.T) {
	cases := []struct {
		name string
		in   Startup
		want float64
	}{
		{"explicit kept", Startup{AskAmount: 200_000, MinInvestment: 5_000}, 5_000},
		{"ten percent of ask", Startup{AskAmount: 200_000}, 20_000},
		{"rounded", Startup{AskAmount: 12_345}, 1_235},
		{"floored at 1000", Startup{AskAmount: 4_000}, 1_000},
		{"zero ask floors too", Startup{}, 1_000},
	}
	for _, tc := range cases {
		got := ApplyDefaults(tc.in)
		if got.MinInvestment != tc.want {
			t.Fatalf("%s: MinInvestment = %v, want %v", tc.name, got.MinInvestment, tc.want)
		}
	}
}

func TestApplyDefaultsFundingGoal(t *testing.T) {
	s := ApplyDefaults(Startup{AskAmount: 150_000})
	if s.FundingGoal != 150_000 {
		t.Fatalf("FundingGoal = %v, want ask amount", s.FundingGoal)
	}

	s = ApplyDefaults(Startup{AskAmount: 150_000, FundingGoal: 500_000})
	if s.FundingGoal != 500_000 {
		t.Fatalf("explicit FundingGoal overwritten: %v", s.FundingGoal)
	}
}

func TestApplyDefaultsMetadata(t *testing.T) {
	s := ApplyDefaults(Startup{AskAmount: 100_000})
	if s.Stage != "seed" {
		t.Fatalf("Stage = %q", s.Stage)
	}
	if s.RiskLevel != "medium" {
		t.Fatalf("RiskLevel = %q", s.RiskLevel)
	}

	s = ApplyDefaults(Startup{AskAmount: 100_000, Stage: "series-b", RiskLevel: "low"})
	if s.Stage != "series-b" || s.RiskLevel != "low" {
		t.Fatalf("explicit metadata overwritten: %q %q", s.Stage, s.RiskLevel)
	}
}
