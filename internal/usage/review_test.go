package usage

import (
	"context"
	"path/filepath"
	"testing"

	"jokefeed/internal/models"
	"jokefeed/internal/prefs"
	"jokefeed/internal/remoteconfig"
)

// fakeReviewer behaves like the real collaborator: it marks the persisted
// flag on success.
type fakeReviewer struct {
	prefs *prefs.Store
	calls int
	fail  bool
}

func (f *fakeReviewer) RequestReview(ctx context.Context) error {
	f.calls++
	if f.fail {
		return context.DeadlineExceeded
	}
	return f.prefs.SetBool(prefs.KeyReviewRequested, true)
}

func newGateFixture(t *testing.T, id Identity) (*Gate, *prefs.Store, *fakeReviewer, *remoteconfig.Reader) {
	t.Helper()

	p, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.json"))
	if err != nil {
		t.Fatalf("prefs.Open: %v", err)
	}

	rc, err := remoteconfig.NewReader(remoteconfig.AllParams)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	if id == nil {
		id = &fakeIdentity{}
	}

	reviewer := &fakeReviewer{prefs: p}
	gate := NewGate(p, rc, id, reviewer, nil)
	return gate, p, reviewer, rc
}

// Default thresholds: 10 days, 3 saved, 1 shared, 30 viewed.
var eligibleSnap = models.UsageSnapshot{
	NumDaysUsed:    10,
	NumSavedJokes:  3,
	NumSharedJokes: 1,
	NumJokesViewed: 30,
}

func TestEligibleAtExactThresholds(t *testing.T) {
	gate, _, reviewer, _ := newGateFixture(t, nil)

	prompted := gate.MaybePromptForReview(context.Background(), eligibleSnap, "test")
	if !prompted {
		t.Error("expected prompt at exact thresholds")
	}
	if reviewer.calls != 1 {
		t.Errorf("reviewer calls = %d, want 1", reviewer.calls)
	}
}

func TestNotEligibleBelowThreshold(t *testing.T) {
	tests := []struct {
		name string
		snap models.UsageSnapshot
	}{
		{"days short", models.UsageSnapshot{NumDaysUsed: 9, NumSavedJokes: 3, NumSharedJokes: 1, NumJokesViewed: 30}},
		{"saved short", models.UsageSnapshot{NumDaysUsed: 10, NumSavedJokes: 2, NumSharedJokes: 1, NumJokesViewed: 30}},
		{"shared short", models.UsageSnapshot{NumDaysUsed: 10, NumSavedJokes: 3, NumSharedJokes: 0, NumJokesViewed: 30}},
		{"viewed short", models.UsageSnapshot{NumDaysUsed: 10, NumSavedJokes: 3, NumSharedJokes: 1, NumJokesViewed: 29}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, _, reviewer, _ := newGateFixture(t, nil)

			if gate.MaybePromptForReview(context.Background(), tt.snap, "test") {
				t.Error("expected no prompt")
			}
			if reviewer.calls != 0 {
				t.Errorf("reviewer calls = %d, want 0", reviewer.calls)
			}
		})
	}
}

func TestAlreadyRequestedNeverPromptsAgain(t *testing.T) {
	gate, p, reviewer, _ := newGateFixture(t, nil)

	if err := p.SetBool(prefs.KeyReviewRequested, true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}

	for i := 0; i < 3; i++ {
		if gate.MaybePromptForReview(context.Background(), eligibleSnap, "test") {
			t.Error("prompted despite existing flag")
		}
	}
	if reviewer.calls != 0 {
		t.Errorf("reviewer calls = %d, want 0", reviewer.calls)
	}
}

func TestAtMostOnceAcrossCalls(t *testing.T) {
	gate, _, reviewer, _ := newGateFixture(t, nil)
	ctx := context.Background()

	if !gate.MaybePromptForReview(ctx, eligibleSnap, "first") {
		t.Fatal("first call should prompt")
	}

	// The collaborator marked the flag; later calls must not reach it,
	// whatever the counters say.
	big := models.UsageSnapshot{NumDaysUsed: 999, NumSavedJokes: 999, NumSharedJokes: 999, NumJokesViewed: 999}
	if gate.MaybePromptForReview(ctx, big, "second") {
		t.Error("second call prompted")
	}
	if reviewer.calls != 1 {
		t.Errorf("reviewer calls = %d, want 1", reviewer.calls)
	}
}

func TestAdminExempt(t *testing.T) {
	gate, _, reviewer, _ := newGateFixture(t, &fakeIdentity{admin: true})

	if gate.MaybePromptForReview(context.Background(), eligibleSnap, "test") {
		t.Error("prompted for admin")
	}
	if reviewer.calls != 0 {
		t.Errorf("reviewer calls = %d, want 0", reviewer.calls)
	}
}

func TestSubscriptionRequirement(t *testing.T) {
	fetched := &fakeFetcher{values: map[string]any{
		"reviewRequireSubscription": true,
	}}

	t.Run("not subscribed", func(t *testing.T) {
		gate, _, reviewer, rc := newGateFixture(t, &fakeIdentity{subscribed: false})
		rc.Init(context.Background(), fetched)

		if gate.MaybePromptForReview(context.Background(), eligibleSnap, "test") {
			t.Error("prompted without required subscription")
		}
		if reviewer.calls != 0 {
			t.Errorf("reviewer calls = %d, want 0", reviewer.calls)
		}
	})

	t.Run("subscribed", func(t *testing.T) {
		gate, _, reviewer, rc := newGateFixture(t, &fakeIdentity{subscribed: true})
		rc.Init(context.Background(), fetched)

		if !gate.MaybePromptForReview(context.Background(), eligibleSnap, "test") {
			t.Error("expected prompt for subscribed user")
		}
		if reviewer.calls != 1 {
			t.Errorf("reviewer calls = %d, want 1", reviewer.calls)
		}
	})
}

// fakeFetcher mirrors the one in the remoteconfig tests; defined here to
// keep this package self-contained.
type fakeFetcher struct {
	values map[string]any
}

func (f *fakeFetcher) FetchAndActivate(ctx context.Context) (map[string]any, error) {
	return f.values, nil
}

func TestReviewerFailureDoesNotSetFlag(t *testing.T) {
	gate, p, reviewer, _ := newGateFixture(t, nil)
	reviewer.fail = true

	if !gate.MaybePromptForReview(context.Background(), eligibleSnap, "test") {
		t.Fatal("expected prompt attempt")
	}

	// The collaborator owns the flag; its failure leaves it unset, so a
	// later call may try again.
	if v, _ := p.GetBool(prefs.KeyReviewRequested); v {
		t.Error("flag set despite reviewer failure")
	}

	reviewer.fail = false
	if !gate.MaybePromptForReview(context.Background(), eligibleSnap, "retry") {
		t.Error("expected prompt after earlier failure")
	}
	if reviewer.calls != 2 {
		t.Errorf("reviewer calls = %d, want 2", reviewer.calls)
	}
}
