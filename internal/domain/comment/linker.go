package comment

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultLinkThreshold is the minimum similarity for a link to be kept.
const DefaultLinkThreshold = 60.0

const (
	identicalAbove = 95.0
	modifiedAbove  = 80.0
)

// ClassifyLink maps a similarity score to a link type.
func ClassifyLink(score float64) LinkType {
	switch {
	case score > identicalAbove:
		return LinkIdentical
	case score > modifiedAbove:
		return LinkModified
	default:
		return LinkRelated
	}
}

// Linker pairs the comments of a revision with those of its successor.
type Linker struct {
	matcher   Matcher
	threshold float64
}

// NewLinker returns a Linker keeping pairs that score at least threshold.
// A non-positive threshold uses DefaultLinkThreshold.
func NewLinker(matcher Matcher, threshold float64) *Linker {
	if threshold <= 0 {
		threshold = DefaultLinkThreshold
	}
	return &Linker{matcher: matcher, threshold: threshold}
}

// Threshold returns the minimum score a kept link carries.
func (l *Linker) Threshold() float64 { return l.threshold }

// DetectLinks scores every (source, target) pair and returns the pairs at or
// above the threshold, highest score first.  Equal scores keep source order,
// then target order.
//
// The comparison is exhaustive, O(len(source)·len(target)).  Revisions carry
// tens to low hundreds of comments, so no blocking or indexing is applied.
func (l *Linker) DetectLinks(source, target []*Comment) []*Link {
	now := time.Now().UTC()
	var links []*Link
	for _, s := range source {
		for _, t := range target {
			score := l.matcher.Similarity(s.Text, t.Text)
			if score < l.threshold {
				continue
			}
			links = append(links, &Link{
				ID:              uuid.NewString(),
				SourceCommentID: s.ID,
				TargetCommentID: t.ID,
				LinkType:        ClassifyLink(score),
				SimilarityScore: score,
				AIDetected:      true,
				Confidence:      score,
				CreatedAt:       now,
				Source:          s,
				Target:          t,
			})
		}
	}
	sort.SliceStable(links, func(i, j int) bool {
		return links[i].SimilarityScore > links[j].SimilarityScore
	})
	return links
}

// DetectLinks links source to target with the default matcher.
func DetectLinks(source, target []*Comment, threshold float64) []*Link {
	return NewLinker(NewMatcher(DefaultSubstringBoost), threshold).DetectLinks(source, target)
}

// SelectPersistable filters links so that each target comment keeps at most
// one identical or modified link, the highest scoring one.  Weaker duplicates
// are dropped; related links are kept.  The result is ordered best first.
func SelectPersistable(links []*Link) []*Link {
	ordered := make([]*Link, len(links))
	copy(ordered, links)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SimilarityScore > ordered[j].SimilarityScore
	})

	strong := make(map[string]bool)
	kept := make([]*Link, 0, len(ordered))
	for _, l := range ordered {
		if l.LinkType.IsStrong() {
			if strong[l.TargetCommentID] {
				continue
			}
			strong[l.TargetCommentID] = true
		}
		kept = append(kept, l)
	}
	return kept
}

// CarryoverCount returns the number of distinct target comments linked.
func CarryoverCount(links []*Link) int {
	targets := make(map[string]struct{}, len(links))
	for _, l := range links {
		targets[l.TargetCommentID] = struct{}{}
	}
	return len(targets)
}

//Personal.AI order the ending
