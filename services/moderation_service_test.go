package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/communityhq/opportunity-board/models"
	"github.com/communityhq/opportunity-board/shared"
)

func newTestModeration(t *testing.T, fetcher ContentFetcher) (*ModerationService, *OpportunityService, *stubEnqueuer) {
	t.Helper()

	db := setupTestDB(t)
	store := NewOpportunityService(db)
	enqueuer := &stubEnqueuer{}
	service := NewModerationService(store, fetcher, &stubAnalytics{}, enqueuer)
	return service, store, enqueuer
}

func TestCheckExpiredCooldown(t *testing.T) {
	fetcher := &stubFetcher{content: "Senior Engineer. Apply now."}
	service, store, _ := newTestModeration(t, fetcher)
	ctx := context.Background()
	posterID := createTestMember(t, store.DB, models.RoleMember, nil)

	opportunity, err := store.CreatePlaceholder(ctx, uniqueTestLink(t), posterID)
	if err != nil {
		t.Fatalf("CreatePlaceholder failed: %v", err)
	}

	expired, err := service.CheckExpired(ctx, opportunity.ID, false)
	if err != nil {
		t.Fatalf("first CheckExpired failed: %v", err)
	}
	if expired {
		t.Error("live content should not expire the opportunity")
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", fetcher.calls)
	}

	// Within the cooldown an unforced check must not fetch.
	expired, err = service.CheckExpired(ctx, opportunity.ID, false)
	if err != nil {
		t.Fatalf("throttled CheckExpired failed: %v", err)
	}
	if expired {
		t.Error("throttled check should report false")
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch calls = %d after throttled check, want still 1", fetcher.calls)
	}

	if _, err := service.CheckExpired(ctx, opportunity.ID, true); err != nil {
		t.Fatalf("forced CheckExpired failed: %v", err)
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d after forced check, want 2", fetcher.calls)
	}
}

func TestCheckExpiredDetectsDeadPosting(t *testing.T) {
	fetcher := &stubFetcher{content: "Sorry, this role is no longer available."}
	service, store, _ := newTestModeration(t, fetcher)
	ctx := context.Background()
	posterID := createTestMember(t, store.DB, models.RoleMember, nil)

	opportunity, err := store.CreatePlaceholder(ctx, uniqueTestLink(t), posterID)
	if err != nil {
		t.Fatalf("CreatePlaceholder failed: %v", err)
	}

	expired, err := service.CheckExpired(ctx, opportunity.ID, true)
	if err != nil {
		t.Fatalf("CheckExpired failed: %v", err)
	}
	if !expired {
		t.Fatal("dead content should be detected as expired")
	}

	current, err := store.GetByID(ctx, opportunity.ID)
	if err != nil || current == nil {
		t.Fatal(err)
	}
	if !current.Expired() {
		t.Error("opportunity should be expired after detection")
	}

	// Expired records are never selected again.
	expired, err = service.CheckExpired(ctx, opportunity.ID, true)
	if err != nil {
		t.Fatalf("post-expiry CheckExpired failed: %v", err)
	}
	if expired {
		t.Error("an already-expired opportunity should be a no-op")
	}
}

func TestCheckExpiredSurfacesFetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: shared.UpstreamError("fetch", "connection reset", nil)}
	service, store, _ := newTestModeration(t, fetcher)
	ctx := context.Background()
	posterID := createTestMember(t, store.DB, models.RoleMember, nil)

	opportunity, err := store.CreatePlaceholder(ctx, uniqueTestLink(t), posterID)
	if err != nil {
		t.Fatalf("CreatePlaceholder failed: %v", err)
	}

	_, err = service.CheckExpired(ctx, opportunity.ID, true)
	if err == nil {
		t.Fatal("fetch failure must surface on the moderation path")
	}
	if shared.CategoryOf(err) != shared.ErrorCategoryUpstream {
		t.Errorf("category = %s, want upstream", shared.CategoryOf(err))
	}
}

func TestSweepExpiredBoundsFanOut(t *testing.T) {
	service, store, enqueuer := newTestModeration(t, &stubFetcher{})
	ctx := context.Background()
	posterID := createTestMember(t, store.DB, models.RoleMember, nil)

	for i := 0; i < 3; i++ {
		if _, err := store.CreatePlaceholder(ctx, uniqueTestLink(t), posterID); err != nil {
			t.Fatalf("CreatePlaceholder failed: %v", err)
		}
	}

	if err := service.SweepExpired(ctx, 2); err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}

	if len(enqueuer.jobs) != 2 {
		t.Fatalf("jobs enqueued = %d, want the limit of 2", len(enqueuer.jobs))
	}
	for _, name := range enqueuer.jobs {
		if name != JobCheckExpired {
			t.Errorf("enqueued job = %q, want %q", name, JobCheckExpired)
		}
	}
}

func TestReportUnknownOpportunity(t *testing.T) {
	service, store, _ := newTestModeration(t, &stubFetcher{})
	reporterID := createTestMember(t, store.DB, models.RoleMember, nil)

	_, err := service.Report(context.Background(), uuid.New(), reporterID, "spam")
	if err == nil {
		t.Fatal("expected not-found for an unknown opportunity")
	}
	if shared.CategoryOf(err) != shared.ErrorCategoryNotFound {
		t.Errorf("category = %s, want not_found", shared.CategoryOf(err))
	}
}

func TestDeletePermissions(t *testing.T) {
	service, store, _ := newTestModeration(t, &stubFetcher{})
	ctx := context.Background()
	posterID := createTestMember(t, store.DB, models.RoleMember, nil)
	strangerID := createTestMember(t, store.DB, models.RoleMember, nil)

	opportunity, err := store.CreatePlaceholder(ctx, uniqueTestLink(t), posterID)
	if err != nil {
		t.Fatalf("CreatePlaceholder failed: %v", err)
	}

	if err := service.Delete(ctx, opportunity.ID, nil); shared.CategoryOf(err) != shared.ErrorCategoryForbidden {
		t.Errorf("nil requester: category = %s, want forbidden", shared.CategoryOf(err))
	}
	if err := service.Delete(ctx, opportunity.ID, &strangerID); shared.CategoryOf(err) != shared.ErrorCategoryForbidden {
		t.Errorf("stranger: category = %s, want forbidden", shared.CategoryOf(err))
	}

	if err := service.Delete(ctx, opportunity.ID, &posterID); err != nil {
		t.Fatalf("poster delete failed: %v", err)
	}

	current, err := store.GetByID(ctx, opportunity.ID)
	if err != nil {
		t.Fatal(err)
	}
	if current != nil {
		t.Error("opportunity still present after delete")
	}
}
