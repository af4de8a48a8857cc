package materialize

import (
	"context"
	"time"

	"github.com/wneill3333/neill-planner-sub008/internal/model"
	"github.com/wneill3333/neill-planner-sub008/internal/reconcile"
	"github.com/wneill3333/neill-planner-sub008/internal/repo"
	"github.com/wneill3333/neill-planner-sub008/internal/store"
)

// Writer persists reconciliation plans.
type Writer struct {
	Docs      repo.DocumentStore
	Tasks     *repo.Tasks
	Patterns  *repo.Patterns
	BatchSize int
}

// Applied reports what a plan changed.
type Applied struct {
	Created  []string
	Unlinked int
	ActiveID string
}

// Apply writes plan for pattern: unlinks first, in batches, then one add per
// draft, then the active instance. On error, Applied holds what was written
// before the failure.
func (w Writer) Apply(ctx context.Context, pattern model.Pattern, plan reconcile.Plan, now time.Time) (Applied, error) {
	var out Applied

	if len(plan.ToUnlink) > 0 {
		muts := make([]store.Mutation, len(plan.ToUnlink))
		for i, id := range plan.ToUnlink {
			muts[i] = repo.UnlinkMutation(id, now)
		}
		if _, err := repo.CommitChunked(ctx, w.Docs, muts, w.BatchSize); err != nil {
			return out, err
		}
		out.Unlinked = len(muts)
	}

	for _, draft := range plan.ToCreate {
		id, err := w.Tasks.CreateInstance(ctx, draft.Task(), now)
		if err != nil {
			return out, err
		}
		out.Created = append(out.Created, id)
	}

	active := plan.AdoptActiveID
	if plan.ActivateCreated && len(out.Created) > 0 {
		active = out.Created[0]
	}
	if active != "" {
		if err := w.Patterns.Update(ctx, pattern.ID, repo.PatternUpdate{ActiveInstanceID: &active}, now); err != nil {
			return out, err
		}
		out.ActiveID = active
	}
	return out, nil
}
