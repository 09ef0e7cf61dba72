// Package orchestrator drives multi-target publishing: it resolves
// credentials, dispatches each target to its adapter family, and merges
// every per-target result into the property's distribution map in a
// single persisted update. A failing target never aborts the run and
// never leaves its entry pending.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"realestatesync/adapters"
	"realestatesync/adapters/extension"
	"realestatesync/models"
	"realestatesync/registry"
	"realestatesync/relay"
	"realestatesync/settings"
	"realestatesync/storage"
	"realestatesync/utils"
)

// TargetAll publishes to every target in the catalog.
const TargetAll = "all"

// ErrUnknownTarget is returned when the requested target is not in the
// catalog.
var ErrUnknownTarget = fmt.Errorf("unknown target")

// Orchestrator coordinates publish runs across all adapter families.
type Orchestrator struct {
	logger     *utils.Logger
	store      storage.PropertyStore
	resolver   *settings.Resolver
	publishers map[registry.Family]adapters.Publisher
	extension  *extension.Adapter
	inflight   *utils.InflightSet
}

// New creates an Orchestrator. The publishers map holds one adapter per
// synchronous family; the extension adapter is separate because its
// completion contract is asynchronous.
func New(
	logger *utils.Logger,
	store storage.PropertyStore,
	resolver *settings.Resolver,
	publishers map[registry.Family]adapters.Publisher,
	ext *extension.Adapter,
) *Orchestrator {
	return &Orchestrator{
		logger:     logger,
		store:      store,
		resolver:   resolver,
		publishers: publishers,
		extension:  ext,
		inflight:   utils.NewInflightSet(),
	}
}

// Publish runs a publish of property id to targetName, or to every
// catalog target when targetName is "all". Targets run sequentially in
// catalog order; each failure is recorded in that target's distribution
// entry and the run continues. All results are merged and persisted in
// one atomic store update, and the updated property is returned.
func (o *Orchestrator) Publish(ctx context.Context, id, targetName string) (*models.Property, error) {
	property, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	targets, err := selectTargets(targetName)
	if err != nil {
		return nil, err
	}

	o.logger.Info("[orchestrator] publishing property %s to %d target(s)", id, len(targets))

	results := make(map[string]models.DistributionStatus, len(targets))
	for _, target := range targets {
		results[target.Name] = o.publishOne(ctx, property, target)
	}

	updated, err := o.store.UpdateDistributions(ctx, id, results, true)
	if err != nil {
		return nil, fmt.Errorf("persist distribution results for %s: %w", id, err)
	}
	return updated, nil
}

// publishOne runs a single target and always produces a terminal status:
// success or error, never pending.
func (o *Orchestrator) publishOne(ctx context.Context, p *models.Property, target registry.Target) (status models.DistributionStatus) {
	key := p.ID + "/" + target.Name
	if !o.inflight.Acquire(key) {
		return errorStatus(fmt.Sprintf("a publish to %s is already in progress", target.Name))
	}
	defer o.inflight.Release(key)

	// A panicking adapter must not take down the run or the process; the
	// panic becomes that target's error entry.
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("[orchestrator] adapter for %s panicked: %v", target.Name, r)
			status = errorStatus(fmt.Sprintf("internal error publishing to %s: %v", target.Name, r))
		}
	}()

	cfg, err := o.resolver.Resolve(ctx, target.Name)
	if err != nil {
		o.logger.Warn("[orchestrator] skipping %s: %v", target.Name, err)
		return errorStatus(err.Error())
	}

	started := time.Now()

	if target.Family == registry.FamilyExtension {
		acc := o.extension.Accept(ctx, p, target, cfg)
		if !acc.Accepted {
			return errorStatus(acc.Reason)
		}
		// Accepted means the extension took over; the posting result
		// arrives later through the status listener and overwrites this.
		o.logger.Info("[orchestrator] %s accepted by extension in %s", target.Name, time.Since(started).Round(time.Millisecond))
		return models.DistributionStatus{Status: models.DistributionSuccess}
	}

	publisher, ok := o.publishers[target.Family]
	if !ok {
		return errorStatus(fmt.Sprintf("no adapter registered for family %s", target.Family))
	}

	outcome := publisher.Publish(ctx, p, target, cfg)
	if !outcome.Success {
		o.logger.Warn("[orchestrator] %s failed after %s: %s", target.Name, time.Since(started).Round(time.Millisecond), outcome.Error)
		return errorStatus(outcome.Error)
	}

	o.logger.Info("[orchestrator] %s published in %s", target.Name, time.Since(started).Round(time.Millisecond))
	return models.DistributionStatus{Status: models.DistributionSuccess, PostURL: outcome.PostURL}
}

// TestTarget probes connectivity for a single target without creating a
// listing. Resolution failures surface as-is so the caller can tell
// "misconfigured" from "unreachable".
func (o *Orchestrator) TestTarget(ctx context.Context, targetName string) error {
	target, ok := registry.Get(targetName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, targetName)
	}

	cfg, err := o.resolver.Resolve(ctx, targetName)
	if err != nil {
		return err
	}

	if target.Family == registry.FamilyExtension {
		return o.extension.TestConnection(ctx, target, cfg)
	}
	publisher, ok := o.publishers[target.Family]
	if !ok {
		return fmt.Errorf("no adapter registered for family %s", target.Family)
	}
	return publisher.TestConnection(ctx, target, cfg)
}

// ConsumeStatusUpdates applies asynchronous extension results to the
// distribution map until the channel closes or ctx is cancelled. Each
// update is one atomic merge of a single target entry.
func (o *Orchestrator) ConsumeStatusUpdates(ctx context.Context, updates <-chan relay.StatusUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			o.applyStatusUpdate(ctx, update)
		}
	}
}

func (o *Orchestrator) applyStatusUpdate(ctx context.Context, update relay.StatusUpdate) {
	status := models.DistributionStatus{Status: models.DistributionSuccess, PostURL: update.PostURL}
	if !update.Success {
		status = errorStatus(update.Message)
	}

	merge := map[string]models.DistributionStatus{update.Target: status}
	if _, err := o.store.UpdateDistributions(ctx, update.PropertyID, merge, update.Success); err != nil {
		o.logger.Error("[orchestrator] could not apply status update for property %s target %s: %v",
			update.PropertyID, update.Target, err)
		return
	}
	o.logger.Info("[orchestrator] applied relayed result for property %s: target=%s success=%t",
		update.PropertyID, update.Target, update.Success)
}

// selectTargets resolves the requested name to catalog targets.
func selectTargets(targetName string) ([]registry.Target, error) {
	if targetName == TargetAll || targetName == "" {
		return registry.List(), nil
	}
	target, ok := registry.Get(targetName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, targetName)
	}
	return []registry.Target{target}, nil
}

func errorStatus(message string) models.DistributionStatus {
	if message == "" {
		message = "publish failed"
	}
	return models.DistributionStatus{Status: models.DistributionError, Error: message}
}
