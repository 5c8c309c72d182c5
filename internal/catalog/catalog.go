package catalog

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrStartupNotFound = errors.New("startup not found")

// Startup is the pitched company as the engine sees it: read-only pitch
// economics plus display metadata. Defaults are applied once at the
// ingestion boundary instead of ad hoc at each call site.
type Startup struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Valuation     float64 `json:"valuation"`
	AskAmount     float64 `json:"ask_amount"`
	FundingGoal   float64 `json:"funding_goal"`
	EquityOffered float64 `json:"equity_offered"`
	MinInvestment float64 `json:"min_investment"`
	Industry      string  `json:"industry"`
	Stage         string  `json:"stage"`
	RiskLevel     string  `json:"risk_level"`
}

const fallbackMinInvestment = 1_000

// ApplyDefaults fills the optional fields a catalog record may arrive
// without. Minimum investment falls back to 10% of the ask (the same rule
// the pitch screens used), floored at $1,000; the funding goal falls back
// to the ask itself.
func ApplyDefaults(s Startup) Startup {
	if s.MinInvestment <= 0 {
		s.MinInvestment = math.Round(s.AskAmount * 0.1)
		if s.MinInvestment < fallbackMinInvestment {
			s.MinInvestment = fallbackMinInvestment
		}
	}
	if s.FundingGoal <= 0 {
		s.FundingGoal = s.AskAmount
	}
	if strings.TrimSpace(s.Stage) == "" {
		s.Stage = "seed"
	}
	if strings.TrimSpace(s.RiskLevel) == "" {
		s.RiskLevel = "medium"
	}
	return s
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) List(ctx context.Context) ([]Startup, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, valuation, ask_amount, funding_goal, equity_offered, min_investment, industry, stage, risk_level
		FROM game.startups
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Startup
	for rows.Next() {
		var s Startup
		if err := rows.Scan(&s.ID, &s.Name, &s.Valuation, &s.AskAmount, &s.FundingGoal, &s.EquityOffered, &s.MinInvestment, &s.Industry, &s.Stage, &s.RiskLevel); err != nil {
			return nil, err
		}
		out = append(out, ApplyDefaults(s))
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (Startup, error) {
	var s Startup
	err := r.db.QueryRow(ctx, `
		SELECT id, name, valuation, ask_amount, funding_goal, equity_offered, min_investment, industry, stage, risk_level
		FROM game.startups
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.Valuation, &s.AskAmount, &s.FundingGoal, &s.EquityOffered, &s.MinInvestment, &s.Industry, &s.Stage, &s.RiskLevel)
	if err != nil {
		if err == pgx.ErrNoRows {
			return s, ErrStartupNotFound
		}
		return s, err
	}
	return ApplyDefaults(s), nil
}

// SeedDefaults loads the starter deck of fictitious pitches once per fresh
// database.
func (r *Repo) SeedDefaults(ctx context.Context) error {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM game.startups`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := []Startup{
		{Name: "Fernly", Valuation: 1_000_000, AskAmount: 100_000, EquityOffered: 0.10, Industry: "agtech", Stage: "seed", RiskLevel: "medium"},
		{Name: "Quibble Pay", Valuation: 4_500_000, AskAmount: 450_000, EquityOffered: 0.10, Industry: "fintech", Stage: "series-a", RiskLevel: "high"},
		{Name: "Loftwood", Valuation: 800_000, AskAmount: 120_000, EquityOffered: 0.15, Industry: "proptech", Stage: "pre-seed", RiskLevel: "high"},
		{Name: "Mapletron", Valuation: 2_200_000, AskAmount: 200_000, EquityOffered: 0.09, Industry: "robotics", Stage: "seed", RiskLevel: "medium"},
		{Name: "Brioche Labs", Valuation: 1_500_000, AskAmount: 150_000, EquityOffered: 0.10, Industry: "foodtech", Stage: "seed", RiskLevel: "low"},
		{Name: "Drift & Anchor", Valuation: 3_000_000, AskAmount: 250_000, EquityOffered: 0.08, Industry: "logistics", Stage: "series-a", RiskLevel: "medium"},
		{Name: "Petalwise", Valuation: 600_000, AskAmount: 90_000, EquityOffered: 0.15, Industry: "dtc", Stage: "pre-seed", RiskLevel: "high"},
		{Name: "Gloamly", Valuation: 5_000_000, AskAmount: 400_000, EquityOffered: 0.08, Industry: "sleep-tech", Stage: "series-a", RiskLevel: "low"},
		{Name: "Cobble CI", Valuation: 2_800_000, AskAmount: 300_000, EquityOffered: 0.10, Industry: "devtools", Stage: "seed", RiskLevel: "medium"},
		{Name: "Humdrum AI", Valuation: 7_500_000, AskAmount: 600_000, EquityOffered: 0.08, Industry: "ai", Stage: "series-a", RiskLevel: "high"},
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, s := range seed {
		s = ApplyDefaults(s)
		_, err := tx.Exec(ctx, `
			INSERT INTO game.startups (id, name, valuation, ask_amount, funding_goal, equity_offered, min_investment, industry, stage, risk_level)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, s.Name, s.Valuation, s.AskAmount, s.FundingGoal, s.EquityOffered, s.MinInvestment, s.Industry, s.Stage, s.RiskLevel)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
