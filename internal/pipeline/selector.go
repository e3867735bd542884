package pipeline

import (
	"time"

	"horse.fit/newsdesk/internal/db"
)

// RepresentativeArticle is the read-time projection handed to the drafting
// collaborator: a member article with its publisher display name resolved.
type RepresentativeArticle struct {
	ArticleID   int64      `json:"article_id"`
	Title       string     `json:"title"`
	URL         *string    `json:"url,omitempty"`
	Publisher   string     `json:"publisher"`
	Language    *string    `json:"language,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// clampRepresentativeMax clamps the requested count into the configured
// range. Zero or negative means "not provided" and takes the cap.
func clampRepresentativeMax(requested int, cfg Config) int {
	if requested <= 0 {
		return cfg.RepresentativeCap
	}
	if requested < cfg.RepresentativeFloor {
		return cfg.RepresentativeFloor
	}
	if requested > cfg.RepresentativeCap {
		return cfg.RepresentativeCap
	}
	return requested
}

// selectRepresentatives picks up to maxCount members in two passes over the
// recency-sorted member list: first one article per distinct publisher, then
// a fill pass that allows publisher repeats only when diversity alone could
// not reach the requested count. The caller supplies members most recent
// first; output preserves pass order, not a single merged recency sort.
func selectRepresentatives(members []db.ClusterMemberArticle, maxCount int) []RepresentativeArticle {
	if maxCount <= 0 || len(members) == 0 {
		return []RepresentativeArticle{}
	}

	picked := make([]RepresentativeArticle, 0, maxCount)
	included := make(map[int64]struct{}, maxCount)
	seenPublishers := make(map[string]struct{}, maxCount)

	for _, member := range members {
		if len(picked) >= maxCount {
			break
		}
		publisher := ResolvePublisher(member.Publisher, member.SourceName)
		if _, seen := seenPublishers[publisher]; seen {
			continue
		}
		seenPublishers[publisher] = struct{}{}
		included[member.ArticleID] = struct{}{}
		picked = append(picked, toRepresentative(member, publisher))
	}

	if len(picked) < maxCount {
		for _, member := range members {
			if len(picked) >= maxCount {
				break
			}
			if _, ok := included[member.ArticleID]; ok {
				continue
			}
			included[member.ArticleID] = struct{}{}
			picked = append(picked, toRepresentative(member, ResolvePublisher(member.Publisher, member.SourceName)))
		}
	}

	return picked
}

func toRepresentative(member db.ClusterMemberArticle, publisher string) RepresentativeArticle {
	return RepresentativeArticle{
		ArticleID:   member.ArticleID,
		Title:       member.Title,
		URL:         member.URL,
		Publisher:   publisher,
		Language:    member.Language,
		PublishedAt: member.PublishedAt,
	}
}
