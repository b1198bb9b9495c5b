package onboarding

import (
	"context"
	"math"
	"time"
)

// ProgressPercentage is the share of logical steps reached at current.
// Premade users never see the style profile step, so it is left out of
// both counts for them.
func ProgressPercentage(steps []Step, current string, payload *Payload) int {
	var logical []string
	for _, s := range steps {
		if s.Name == StepStyleProfile && payload != nil && payload.AvatarPath == AvatarPathPremade {
			continue
		}
		logical = append(logical, s.Name)
	}
	if len(logical) == 0 {
		return 0
	}
	for i, name := range logical {
		if name == current {
			return int(math.Round(float64(i+1) * 100 / float64(len(logical))))
		}
	}
	return 0
}

// AvatarEstimateWindow is how long avatar generation is assumed to take
const AvatarEstimateWindow = 5 * time.Minute

// maxEstimate keeps the estimate short of 100 so it never reads as done
const maxEstimate = 99

// EstimateAvatarProgress is an elapsed-time guess, not a status check.
// Completion is only known from user metadata.
func EstimateAvatarProgress(startedAt, now time.Time) int {
	if startedAt.IsZero() || !now.After(startedAt) {
		return 0
	}
	pct := int(now.Sub(startedAt) * 100 / AvatarEstimateWindow)
	if pct > maxEstimate {
		return maxEstimate
	}
	return pct
}

// TrackAvatarProgress calls fn with a fresh estimate on every tick until ctx
// is done or the estimate tops out.
func TrackAvatarProgress(ctx context.Context, startedAt time.Time, interval time.Duration, fn func(int)) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn(EstimateAvatarProgress(startedAt, time.Now()))
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			pct := EstimateAvatarProgress(startedAt, now)
			fn(pct)
			if pct >= maxEstimate {
				return
			}
		}
	}
}
