package pipeline

import (
	"context"

	"github.com/cbr9/organizer/internal/engine"
	"github.com/cbr9/organizer/internal/locker"
	"github.com/cbr9/organizer/internal/plugin"
)

// actionRuntime adapts engine.RunServices' concrete *storage.Registry and
// *locker.Locker into plugin.ActionRuntime, so action packages depend only
// on the plugin package's cycle-free interfaces.
type actionRuntime struct {
	services *engine.RunServices
}

func newActionRuntime(services *engine.RunServices) *actionRuntime {
	return &actionRuntime{services: services}
}

func (a *actionRuntime) Provider(host string) (plugin.StorageProvider, error) {
	return a.services.Storage.Get(host)
}

func (a *actionRuntime) Lock(ctx context.Context, dest plugin.Destination) (plugin.LockGuard, error) {
	provider, err := a.services.Storage.Get(dest.Host)
	if err != nil {
		return nil, err
	}
	guard, err := a.services.Locker.Lock(ctx, provider, locker.Destination{
		Path:       dest.Path,
		Host:       dest.Host,
		Resolution: locker.ConflictResolution(dest.Resolution),
	})
	if err != nil {
		return nil, err
	}
	if guard == nil {
		return nil, nil
	}
	return lockGuardAdapter{guard: guard}, nil
}

type lockGuardAdapter struct{ guard *locker.LockGuard }

func (l lockGuardAdapter) Path() string { return l.guard.Path }
func (l lockGuardAdapter) Release()     { l.guard.Release() }
