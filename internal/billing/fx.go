package billing

import (
	"github.com/consensusai/consensus/internal/billing/domain"
	"github.com/consensusai/consensus/internal/billing/repository"
	"github.com/consensusai/consensus/internal/billing/service"
	"go.uber.org/fx"
)

// Module wires the billing engine and the tier resolver used by the usage
// tracker. The subscription store is provided by StoreModule or MemoryStoreModule.
var Module = fx.Module("billing.service",
	fx.Provide(service.NewService),
	fx.Provide(service.NewTierResolver),
)

var StoreModule = fx.Module("billing.store",
	fx.Provide(repository.NewSubscriptionStore),
)

var MemoryStoreModule = fx.Module("billing.store.memory",
	fx.Provide(fx.Annotate(repository.NewMemorySubscriptionStore, fx.As(new(domain.SubscriptionStore)))),
)
