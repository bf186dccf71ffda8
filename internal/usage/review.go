package usage

import (
	"context"

	"jokefeed/internal/analytics"
	"jokefeed/internal/models"
	"jokefeed/internal/prefs"
	"jokefeed/internal/remoteconfig"
	"jokefeed/pkg/logger"
)

// Reviewer performs the actual review-prompt flow. On successful delivery
// it owns marking the persisted review-requested flag; the gate never sets
// the flag itself, so "decided eligible" and "successfully asked" stay
// separate.
type Reviewer interface {
	RequestReview(ctx context.Context) error
}

// Gate decides, at most once per app lifetime, whether the review prompt
// may fire. It is stateless apart from the persisted flag it reads.
type Gate struct {
	prefs    *prefs.Store
	rc       *remoteconfig.Reader
	identity Identity
	reviewer Reviewer
	sink     analytics.Sink
}

func NewGate(p *prefs.Store, rc *remoteconfig.Reader, id Identity, reviewer Reviewer, sink analytics.Sink) *Gate {
	if sink == nil {
		sink = analytics.Noop{}
	}
	return &Gate{
		prefs:    p,
		rc:       rc,
		identity: id,
		reviewer: reviewer,
		sink:     sink,
	}
}

// MaybePromptForReview evaluates the eligibility rules against the given
// snapshot and, when they all pass, delegates to the reviewer exactly once.
// Returns whether the prompt was attempted.
func (g *Gate) MaybePromptForReview(ctx context.Context, snap models.UsageSnapshot, source string) bool {
	if requested, _ := g.prefs.GetBool(prefs.KeyReviewRequested); requested {
		return false
	}
	if g.identity != nil && g.identity.IsAdmin() {
		return false
	}

	minDays := g.rc.GetInt(remoteconfig.ParamReviewMinDaysUsed)
	minSaved := g.rc.GetInt(remoteconfig.ParamReviewMinSavedJokes)
	minShared := g.rc.GetInt(remoteconfig.ParamReviewMinSharedJokes)
	minViewed := g.rc.GetInt(remoteconfig.ParamReviewMinJokesViewed)
	requireSub := g.rc.GetBool(remoteconfig.ParamReviewRequireSubscription)

	eligible := snap.NumDaysUsed >= minDays &&
		snap.NumSavedJokes >= minSaved &&
		snap.NumSharedJokes >= minShared &&
		snap.NumJokesViewed >= minViewed

	if eligible && requireSub {
		eligible = g.identity != nil && g.identity.IsDigestSubscribed()
	}

	if !eligible {
		return false
	}

	logger.Info("Review prompt eligible",
		logger.String("source", source),
		logger.Int("num_days_used", snap.NumDaysUsed),
	)
	g.sink.ReviewAttempted(source, true)

	if err := g.reviewer.RequestReview(ctx); err != nil {
		logger.Warn("Review request failed", logger.Err(err))
	}

	return true
}
