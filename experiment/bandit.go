package experiment

import (
	"math/rand"
	"sync"
	"time"
)

// Bandit is an epsilon-greedy multi-armed-bandit adapter that can replace
// the Router's fixed-split assignment: it tracks a running reward average
// per variant and occasionally explores instead of exploiting the current
// best arm.
type Bandit struct {
	mu              sync.Mutex
	variants        []string
	explorationRate float64
	counts          map[string]int
	rewards         map[string]float64
	rng             *rand.Rand
}

// NewBandit constructs a Bandit over variants with the given exploration
// rate (defaults to 0.1 when <= 0).
func NewBandit(variants []string, explorationRate float64) *Bandit {
	if explorationRate <= 0 {
		explorationRate = 0.1
	}
	counts := make(map[string]int, len(variants))
	rewards := make(map[string]float64, len(variants))
	for _, v := range variants {
		counts[v] = 0
		rewards[v] = 0
	}
	return &Bandit{
		variants:        variants,
		explorationRate: explorationRate,
		counts:          counts,
		rewards:         rewards,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SelectArm picks a variant: with probability explorationRate it picks
// uniformly at random, otherwise it picks the variant with the highest
// running average reward.
func (b *Bandit) SelectArm() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.variants) == 0 {
		return ""
	}
	if b.rng.Float64() < b.explorationRate {
		return b.variants[b.rng.Intn(len(b.variants))]
	}

	best := b.variants[0]
	bestAvg := b.avgRewardLocked(best)
	for _, v := range b.variants[1:] {
		avg := b.avgRewardLocked(v)
		if avg > bestAvg {
			best = v
			bestAvg = avg
		}
	}
	return best
}

func (b *Bandit) avgRewardLocked(variant string) float64 {
	count := b.counts[variant]
	if count == 0 {
		return 0
	}
	return b.rewards[variant] / float64(count)
}

// UpdateArm records one more observation of reward for variant.
func (b *Bandit) UpdateArm(variant string, reward float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, v := range b.variants {
		if v == variant {
			b.counts[variant]++
			b.rewards[variant] += reward
			return
		}
	}
}

// Reward is the bandit's reward function: success rate discounted by
// average cost, matching the spec's reward = success_rate * (1 -
// min(avg_cost_usd, 1.0)).
func Reward(successRate, avgCostUSD float64) float64 {
	cost := avgCostUSD
	if cost > 1.0 {
		cost = 1.0
	}
	return successRate * (1 - cost)
}

// AdaptTrafficSplit recomputes a traffic split from variant stats, updating
// the bandit's running rewards along the way, then smooths the new split
// against the current one (0.7 current + 0.3 new) and renormalizes to sum
// to 1.0.
func (b *Bandit) AdaptTrafficSplit(stats []Stats, currentSplit []float64) []float64 {
	rewards := make(map[string]float64, len(stats))
	for _, s := range stats {
		r := Reward(s.SuccessRate, s.AvgCostUSD)
		rewards[s.Variant] = r
		b.UpdateArm(s.Variant, r)
	}

	var total float64
	for _, r := range rewards {
		total += r
	}

	newSplit := make([]float64, len(b.variants))
	if total > 0 {
		for i, v := range b.variants {
			newSplit[i] = rewards[v] / total
		}
	} else {
		even := 1.0 / float64(len(b.variants))
		for i := range newSplit {
			newSplit[i] = even
		}
	}

	smoothed := make([]float64, len(b.variants))
	var sum float64
	for i := range smoothed {
		cur := 0.0
		if i < len(currentSplit) {
			cur = currentSplit[i]
		}
		smoothed[i] = 0.7*cur + 0.3*newSplit[i]
		sum += smoothed[i]
	}
	if sum > 0 {
		for i := range smoothed {
			smoothed[i] /= sum
		}
	}
	return smoothed
}
