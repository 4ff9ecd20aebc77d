// Package tracks synthesizes the externally visible TrackGroup array
// from two orthogonal track spaces: the Chunk Source's bitrate variants
// and the prepared Extractor's in-segment elementary streams.
package tracks

import (
	"hlssource/internal/domain"
	"hlssource/internal/domain/ports"
)

// Result is the outcome of Build: the synthesized groups plus the index
// of the primary (adaptive) group, or -1 if the segment has no single
// track of the primary family.
type Result struct {
	Groups       []domain.TrackGroup
	PrimaryIndex int
}

// Build classifies each of the prepared extractor's tracks by MIME
// family, picks the highest-ranked family present as the primary type,
// and, if exactly one extractor track has that type, produces an
// adaptive group overlaying every variant onto it. Every other
// extractor track becomes its own non-adaptive, single-format group.
func Build(extractor ports.Extractor, variants []domain.Variant) Result {
	n := extractor.TrackCount()
	formats := make([]domain.Format, n)
	for i := 0; i < n; i++ {
		formats[i] = extractor.TrackFormat(i)
	}

	primaryFamily := domain.FamilyOther
	for _, f := range formats {
		if f.Family().Rank() > primaryFamily.Rank() {
			primaryFamily = f.Family()
		}
	}

	primaryIndex := -1
	count := 0
	for i, f := range formats {
		if f.Family() == primaryFamily {
			count++
			primaryIndex = i
		}
	}
	if count != 1 {
		primaryIndex = -1
	}

	groups := make([]domain.TrackGroup, n)
	for i, f := range formats {
		if i == primaryIndex && len(variants) > 0 {
			overlaid := make([]domain.Format, len(variants))
			for vi, v := range variants {
				overlaid[vi] = f.WithVariant(v)
			}
			groups[i] = domain.TrackGroup{Formats: overlaid, Adaptive: true}
			continue
		}
		groups[i] = domain.TrackGroup{Formats: []domain.Format{f}, Adaptive: false}
	}

	return Result{Groups: groups, PrimaryIndex: primaryIndex}
}
