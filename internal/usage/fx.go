package usage

import (
	"github.com/consensusai/consensus/internal/cache"
	"github.com/consensusai/consensus/internal/ratelimit"
	"github.com/consensusai/consensus/internal/usage/domain"
	"github.com/consensusai/consensus/internal/usage/repository"
	"github.com/consensusai/consensus/internal/usage/service"
	"go.uber.org/fx"
)

// Module wires the usage log, recorder and tracker. The event store is
// provided separately by StoreModule or MemoryStoreModule.
var Module = fx.Module("usage.service",
	fx.Provide(cache.NewAggregateCache),
	fx.Provide(provideUserLocker),
	fx.Provide(service.NewRecorder),
	fx.Provide(func(r *service.Recorder) domain.Recorder { return r }),
	fx.Provide(service.NewTracker),
)

var StoreModule = fx.Module("usage.store",
	fx.Provide(repository.NewEventStore),
)

var MemoryStoreModule = fx.Module("usage.store.memory",
	fx.Provide(fx.Annotate(repository.NewMemoryEventStore, fx.As(new(domain.EventStore)))),
)

func provideUserLocker(l *ratelimit.UserLimiter) service.UserLocker {
	if l == nil {
		return nil
	}
	return l
}
