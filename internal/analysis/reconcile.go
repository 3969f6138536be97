package analysis

import (
	"math"
	"sort"

	"xlytics-backend/internal/sync/domain"
)

// Reconciliation is the set-algebra view of a subject's social graph plus
// the derived quality metrics.
type Reconciliation struct {
	Followers       int      `json:"followers"`
	Following       int      `json:"following"`
	Mutual          []string `json:"mutual"`
	Fans            []string `json:"fans"`
	NotFollowedBack []string `json:"not_followed_back"`
	ReciprocityRate float64  `json:"reciprocity_rate"`
	FollowerRatio   float64  `json:"follower_ratio"`
	QualityScore    float64  `json:"quality_score"`
}

// Reconcile computes the mutual / fans / not-followed-back partition of the
// two edge sets and the quality metrics derived from them. Both inputs are
// treated as sets of account ids; duplicates are ignored. The member slices
// are sorted so repeated runs over the same data compare equal.
func Reconcile(followers, following []string) *Reconciliation {
	followerSet := toSet(followers)
	followingSet := toSet(following)

	var mutual, fans, notBack []string
	for id := range followerSet {
		if _, ok := followingSet[id]; ok {
			mutual = append(mutual, id)
		} else {
			fans = append(fans, id)
		}
	}
	for id := range followingSet {
		if _, ok := followerSet[id]; !ok {
			notBack = append(notBack, id)
		}
	}
	sort.Strings(mutual)
	sort.Strings(fans)
	sort.Strings(notBack)

	r := &Reconciliation{
		Followers:       len(followerSet),
		Following:       len(followingSet),
		Mutual:          mutual,
		Fans:            fans,
		NotFollowedBack: notBack,
	}
	if r.Following > 0 {
		r.ReciprocityRate = round1(float64(len(mutual)) / float64(r.Following) * 100)
		r.FollowerRatio = round2(float64(r.Followers) / float64(r.Following))
	}
	r.QualityScore = qualityScore(r.ReciprocityRate, r.FollowerRatio, len(mutual))
	return r
}

// qualityScore blends reciprocity, audience ratio and mutual volume into a
// single 0-100 figure. Each component is capped so no single dimension can
// dominate: reciprocity contributes up to 50, ratio up to 30, mutual count
// up to 20.
func qualityScore(reciprocity, ratio float64, mutualCount int) float64 {
	score := math.Min(reciprocity, 50) +
		math.Min(ratio*20, 30) +
		math.Min(float64(mutualCount)/10*20, 20)
	return round1(math.Max(0, math.Min(score, 100)))
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// MetricsSummary aggregates engagement over a post window.
type MetricsSummary struct {
	PostCount        int     `json:"post_count"`
	TotalLikes       int     `json:"total_likes"`
	TotalReposts     int     `json:"total_reposts"`
	TotalReplies     int     `json:"total_replies"`
	TotalImpressions int     `json:"total_impressions"`
	AvgImpressions   float64 `json:"avg_impressions"`
	EngagementRate   float64 `json:"engagement_rate"`
}

// Summarize totals the engagement counters over posts. The engagement rate
// is total engagement over total impressions, as a percentage; it is zero
// when no impressions were recorded.
func Summarize(posts []domain.Post) *MetricsSummary {
	s := &MetricsSummary{PostCount: len(posts)}
	totalEngagement := 0
	for i := range posts {
		p := &posts[i]
		s.TotalLikes += p.LikeCount
		s.TotalReposts += p.RepostCount
		s.TotalReplies += p.ReplyCount
		s.TotalImpressions += p.ImpressionCount
		totalEngagement += p.Engagement()
	}
	if s.PostCount > 0 {
		s.AvgImpressions = round2(float64(s.TotalImpressions) / float64(s.PostCount))
	}
	if s.TotalImpressions > 0 {
		s.EngagementRate = round2(float64(totalEngagement) / float64(s.TotalImpressions) * 100)
	}
	return s
}

// TopPost returns the post with the highest engagement, or nil for an empty
// window. Ties keep the earlier entry.
func TopPost(posts []domain.Post) *domain.Post {
	var top *domain.Post
	for i := range posts {
		if top == nil || posts[i].Engagement() > top.Engagement() {
			top = &posts[i]
		}
	}
	return top
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
