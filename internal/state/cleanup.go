package state

import (
	"context"
	"log/slog"

	"discosync/internal/domain"
)

// ResolveLocalFunc re-resolves a previously on-the-fly track id to a local
// equivalent, typically by re-running candidate search with the id's current
// metadata. The second return is false when no local equivalent exists.
type ResolveLocalFunc func(ctx context.Context, id string) (string, bool)

// PlanDeletions computes the set of track ids from the previous generation
// that are safe to delete: mark-and-sweep over the prior run's record
// against the library's live membership and favorites.
//
// On-the-fly ids were added to the playlist without a download, so they are
// never deletion candidates themselves. With on-the-fly cleanup enabled each
// one is re-resolved and its local equivalent, if any, joins the protected
// set; with cleanup disabled all of them are protected outright.
func PlanDeletions(
	ctx context.Context,
	previous *domain.GenerationRecord,
	liveMembership map[string]struct{},
	liveFavorites map[string]struct{},
	onTheFlyCleanupEnabled bool,
	resolveLocal ResolveLocalFunc,
) []string {
	externalDownloaded := make(map[string]struct{}, len(previous.SubsonicDownloaded)+len(previous.YouTubeDownloaded))
	for _, id := range previous.SubsonicDownloaded {
		externalDownloaded[id] = struct{}{}
	}
	for _, id := range previous.YouTubeDownloaded {
		externalDownloaded[id] = struct{}{}
	}

	protected := make(map[string]struct{})

	// Still referenced elsewhere: starred or in another playlist.
	for id := range externalDownloaded {
		if _, ok := liveMembership[id]; ok {
			protected[id] = struct{}{}
			continue
		}
		if _, ok := liveFavorites[id]; ok {
			protected[id] = struct{}{}
		}
	}

	for _, id := range previous.AlreadyLocalIDs() {
		protected[id] = struct{}{}
	}

	onTheFly := make(map[string]struct{}, len(previous.OnTheFly))
	for _, id := range previous.OnTheFly {
		onTheFly[id] = struct{}{}
		if !onTheFlyCleanupEnabled {
			protected[id] = struct{}{}
			continue
		}
		if resolveLocal == nil {
			continue
		}
		if localID, ok := resolveLocal(ctx, id); ok {
			protected[localID] = struct{}{}
			slog.Debug("On-the-fly track resolved locally", "id", id, "localId", localID)
		}
	}

	var deletions []string
	for _, id := range previous.UniqueTrackIDs() {
		if _, ok := onTheFly[id]; ok {
			continue
		}
		if _, ok := protected[id]; ok {
			continue
		}
		deletions = append(deletions, id)
	}
	return deletions
}
