package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/store"
)

func seedProject(t *testing.T, f *fakeStore, userID uuid.UUID) *model.Project {
	t.Helper()
	project, _, err := NewProjectService(f, f, f).Create(context.Background(), userID, CreateProjectInput{Name: "P"})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	return project
}

func TestAgentCreate(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("creates agent in needs_setup with budget rule", func(t *testing.T) {
		f := newFakeStore()
		project := seedProject(t, f, owner)
		svc := NewAgentService(f, f, f)

		monthly := int64(10_000_000_000)
		agent, rule, err := svc.Create(ctx, project.ID, owner, CreateAgentInput{
			Name:         "Ticket Classifier",
			Provider:     "openai",
			Model:        "gpt-4o",
			DailyLimit:   500_000_000,
			PerTxLimit:   5_000_000,
			MonthlyLimit: &monthly,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if agent.Status != model.AgentNeedsSetup {
			t.Fatalf("expected needs_setup status, got %q", agent.Status)
		}
		if rule.AgentID != agent.ID {
			t.Fatal("budget rule not bound to agent")
		}
		if rule.MonthlyLimit == nil || *rule.MonthlyLimit != monthly {
			t.Fatalf("unexpected monthly limit %v", rule.MonthlyLimit)
		}
	})

	t.Run("rejects non-positive limits", func(t *testing.T) {
		f := newFakeStore()
		project := seedProject(t, f, owner)
		svc := NewAgentService(f, f, f)

		_, _, err := svc.Create(ctx, project.ID, owner, CreateAgentInput{Name: "A", DailyLimit: 0, PerTxLimit: 1})
		if err == nil || !strings.Contains(err.Error(), "positive") {
			t.Fatalf("expected limit error, got %v", err)
		}
	})

	t.Run("stranger cannot create in another user's project", func(t *testing.T) {
		f := newFakeStore()
		project := seedProject(t, f, owner)
		svc := NewAgentService(f, f, f)

		_, _, err := svc.Create(ctx, project.ID, uuid.New(), CreateAgentInput{Name: "A", DailyLimit: 1, PerTxLimit: 1})
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestAgentUpdate(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	f := newFakeStore()
	project := seedProject(t, f, owner)
	svc := NewAgentService(f, f, f)

	agent, _, err := svc.Create(ctx, project.ID, owner, CreateAgentInput{Name: "A", DailyLimit: 1, PerTxLimit: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("applies updates including status", func(t *testing.T) {
		status := model.AgentActive
		webhook := "https://example.com/hook"
		updated, err := svc.Update(ctx, agent.ID, owner, store.AgentUpdates{Status: &status, WebhookURL: &webhook})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Status != model.AgentActive || updated.WebhookURL != webhook {
			t.Fatalf("unexpected update result: %+v", updated)
		}
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		bad := model.AgentStatus("sleeping")
		_, err := svc.Update(ctx, agent.ID, owner, store.AgentUpdates{Status: &bad})
		if err == nil || !strings.Contains(err.Error(), "not supported") {
			t.Fatalf("expected status error, got %v", err)
		}
	})

	t.Run("stranger sees not found", func(t *testing.T) {
		name := "X"
		_, err := svc.Update(ctx, agent.ID, uuid.New(), store.AgentUpdates{Name: &name})
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestAgentUpdateBudget(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	f := newFakeStore()
	project := seedProject(t, f, owner)
	svc := NewAgentService(f, f, f)

	agent, _, err := svc.Create(ctx, project.ID, owner, CreateAgentInput{Name: "A", DailyLimit: 100, PerTxLimit: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	t.Run("updates limits", func(t *testing.T) {
		daily := int64(200)
		rule, err := svc.UpdateBudget(ctx, agent.ID, owner, store.BudgetUpdates{DailyLimit: &daily})
		if err != nil {
			t.Fatalf("update budget: %v", err)
		}
		if rule.DailyLimit != 200 {
			t.Fatalf("expected daily limit 200, got %d", rule.DailyLimit)
		}
		if rule.PerTxLimit != 10 {
			t.Fatalf("per-tx limit should be untouched, got %d", rule.PerTxLimit)
		}
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		zero := int64(0)
		_, err := svc.UpdateBudget(ctx, agent.ID, owner, store.BudgetUpdates{PerTxLimit: &zero})
		if err == nil || !strings.Contains(err.Error(), "positive") {
			t.Fatalf("expected limit error, got %v", err)
		}
	})
}

func TestAgentDelete(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	f := newFakeStore()
	project := seedProject(t, f, owner)
	svc := NewAgentService(f, f, f)

	agent, _, err := svc.Create(ctx, project.ID, owner, CreateAgentInput{Name: "A", DailyLimit: 1, PerTxLimit: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, agent.ID, uuid.New()); err == nil {
		t.Fatal("expected not found for stranger")
	}
	if err := svc.Delete(ctx, agent.ID, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, agent.ID, owner); err == nil {
		t.Fatal("expected not found after delete")
	}
}
