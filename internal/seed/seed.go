// Package seed resets the database to a known demo dataset.
package seed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	mathrand "math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/lucci-xyz/pilot/internal/middleware"
)

// DemoEmail and DemoPassword are the credentials of the seeded user.
const (
	DemoEmail    = "demo@pilot.app"
	DemoPassword = "password123"
)

// Fixed PRNG seed keeps event amounts and timestamps reproducible between
// runs. Row IDs and the API key still differ.
const prngSeed = 20240601

type project struct {
	name        string
	description string
	balance     int64
	id          uuid.UUID
	vaultID     uuid.UUID
}

type agent struct {
	name         string
	description  string
	provider     string
	model        string
	status       string
	projectIdx   int
	dailyLimit   int64
	perTxLimit   int64
	monthlyLimit *int64
	dailySpent   int64
	monthlySpent int64
	id           uuid.UUID
}

func micros(dollars int64) int64 { return dollars * 1_000_000 }

func optMicros(dollars int64) *int64 {
	v := micros(dollars)
	return &v
}

// Run wipes all rows in dependency order and recreates the demo dataset:
// one user, three funded projects, six agents with budget rules, two funding
// events, fifty spend events spread over two weeks, and one API key.
func Run(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("clearing existing data")
	for _, table := range []string{
		"events", "agent_budget_rules", "agents", "vaults",
		"projects", "api_keys", "sessions", "users",
	} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	var userID uuid.UUID
	err := pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, avatar)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		DemoEmail,
		middleware.SHA256Hex(DemoPassword),
		"Demo User",
		"https://api.dicebear.com/7.x/avataaars/svg?seed=Demo",
	).Scan(&userID)
	if err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}
	log.Info().Str("email", DemoEmail).Msg("created demo user")

	projects := []*project{
		{name: "Customer Support", description: "AI-powered customer support automation", balance: micros(50_000)},
		{name: "Content Generation", description: "Marketing content and copy generation", balance: micros(25_000)},
		{name: "Data Analysis", description: "Automated data analysis and reporting", balance: micros(15_000)},
	}
	for _, p := range projects {
		err := pool.QueryRow(ctx, `
			INSERT INTO projects (name, description, status, user_id)
			VALUES ($1, $2, 'active', $3)
			RETURNING id`,
			p.name, p.description, userID,
		).Scan(&p.id)
		if err != nil {
			return fmt.Errorf("create project %q: %w", p.name, err)
		}

		address, err := randomHexToken("vault_", 16)
		if err != nil {
			return err
		}
		err = pool.QueryRow(ctx, `
			INSERT INTO vaults (address, balance, project_id)
			VALUES ($1, $2, $3)
			RETURNING id`,
			address, p.balance, p.id,
		).Scan(&p.vaultID)
		if err != nil {
			return fmt.Errorf("create vault for %q: %w", p.name, err)
		}
	}
	log.Info().Int("count", len(projects)).Msg("created projects")

	agents := []*agent{
		{
			name: "Ticket Classifier", description: "Automatically classifies and routes support tickets",
			provider: "openai", model: "gpt-4o", status: "active", projectIdx: 0,
			dailyLimit: micros(500), perTxLimit: micros(5), monthlyLimit: optMicros(10_000),
			dailySpent: micros(320), monthlySpent: micros(4_500),
		},
		{
			name: "FAQ Responder", description: "Answers common customer questions automatically",
			provider: "openai", model: "gpt-4o-mini", status: "active", projectIdx: 0,
			dailyLimit: micros(300), perTxLimit: micros(2), monthlyLimit: optMicros(6_000),
			dailySpent: micros(180), monthlySpent: micros(2_800),
		},
		{
			name: "Sentiment Analyzer", description: "Analyzes customer sentiment in real-time",
			provider: "anthropic", model: "claude-3-sonnet", status: "paused", projectIdx: 0,
			dailyLimit: micros(200), perTxLimit: micros(1),
			monthlySpent: micros(1_200),
		},
		{
			name: "Blog Writer", description: "Generates SEO-optimized blog posts",
			provider: "openai", model: "gpt-4o", status: "active", projectIdx: 1,
			dailyLimit: micros(200), perTxLimit: micros(10), monthlyLimit: optMicros(4_000),
			dailySpent: micros(145), monthlySpent: micros(2_100),
		},
		{
			name: "Social Media Bot", description: "Creates social media content",
			provider: "openai", model: "gpt-4o-mini", status: "active", projectIdx: 1,
			dailyLimit: micros(100), perTxLimit: micros(1),
			dailySpent: micros(65), monthlySpent: micros(950),
		},
		{
			name: "Report Generator", description: "Creates automated data reports",
			provider: "openai", model: "gpt-4o", status: "needs_setup", projectIdx: 2,
			dailyLimit: micros(300), perTxLimit: micros(15), monthlyLimit: optMicros(5_000),
		},
	}
	for _, a := range agents {
		err := pool.QueryRow(ctx, `
			INSERT INTO agents (name, description, provider, model, status, project_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			a.name, a.description, a.provider, a.model, a.status, projects[a.projectIdx].id,
		).Scan(&a.id)
		if err != nil {
			return fmt.Errorf("create agent %q: %w", a.name, err)
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO agent_budget_rules (agent_id, daily_limit, per_tx_limit, monthly_limit, daily_spent, monthly_spent)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			a.id, a.dailyLimit, a.perTxLimit, a.monthlyLimit, a.dailySpent, a.monthlySpent,
		)
		if err != nil {
			return fmt.Errorf("create budget rule for %q: %w", a.name, err)
		}
	}
	log.Info().Int("count", len(agents)).Msg("created agents")

	now := time.Now().UTC()

	fundings := []struct {
		vaultID uuid.UUID
		amount  int64
		daysAgo int
	}{
		{projects[0].vaultID, micros(50_000), 7},
		{projects[1].vaultID, micros(25_000), 5},
	}
	for _, f := range fundings {
		txHash, err := randomHexToken("0x", 16)
		if err != nil {
			return err
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO events (type, amount, status, tx_hash, vault_id, created_at)
			VALUES ('funding', $1, 'confirmed', $2, $3, $4)`,
			f.amount, txHash, f.vaultID, now.AddDate(0, 0, -f.daysAgo),
		)
		if err != nil {
			return fmt.Errorf("create funding event: %w", err)
		}
	}

	rng := mathrand.New(mathrand.NewSource(prngSeed))
	spenders := []*agent{agents[0], agents[1], agents[3], agents[4]}
	for i := 0; i < 50; i++ {
		a := spenders[i%len(spenders)]
		vaultID := projects[a.projectIdx].vaultID
		amount := int64(rng.Intn(5_000_000)) + 100_000
		createdAt := now.
			AddDate(0, 0, -rng.Intn(14)).
			Add(-time.Duration(rng.Int63n(int64(24 * time.Hour))))

		metadata, err := json.Marshal(map[string]interface{}{
			"tokens":   rng.Intn(10_000) + 100,
			"model":    a.model,
			"provider": a.provider,
		})
		if err != nil {
			return fmt.Errorf("marshal spend metadata: %w", err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO events (type, amount, status, metadata, vault_id, agent_id, created_at)
			VALUES ('spend', $1, 'confirmed', $2, $3, $4, $5)`,
			-amount, metadata, vaultID, a.id, createdAt,
		)
		if err != nil {
			return fmt.Errorf("create spend event: %w", err)
		}
	}
	log.Info().Int("count", 52).Msg("created events")

	plainKey, err := randomHexToken("pk_live_", 24)
	if err != nil {
		return err
	}
	perms, err := json.Marshal([]string{"read", "write", "execute"})
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO api_keys (user_id, name, key_hash, key_prefix, permissions)
		VALUES ($1, $2, $3, $4, $5)`,
		userID, "Development API Key", middleware.SHA256Hex(plainKey), plainKey[:8], perms,
	)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	log.Info().Msg("created API key")

	log.Info().
		Str("email", DemoEmail).
		Str("password", DemoPassword).
		Msg("seed completed; demo credentials")
	return nil
}

func randomHexToken(prefix string, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return prefix + hex.EncodeToString(buf), nil
}
