package associates

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/events"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/logger"
	"github.com/marcoioli/proyecto-programacion3-grupo12/internal/eventbus"
)

// Registry keeps the associates in memory, writes changes through to an
// optional Store and announces them on the bus.
type Registry struct {
	store Store
	bus   eventbus.EventBus
	log   logger.Logger

	mu    sync.RWMutex
	items map[string]Associate
}

// NewRegistry creates an empty registry. store, bus and log may be nil.
func NewRegistry(store Store, bus eventbus.EventBus, log logger.Logger) *Registry {
	return &Registry{
		store: store,
		bus:   bus,
		log:   logger.OrNop(log),
		items: make(map[string]Associate),
	}
}

// Load replaces the in-memory set with the store contents and publishes a
// single change event.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	list, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load associates: %w", err)
	}
	r.mu.Lock()
	r.items = make(map[string]Associate, len(list))
	for _, a := range list {
		if _, dup := r.items[a.DNI]; dup {
			r.log.Warnf("skipping duplicate associate %s during load", a.DNI)
			continue
		}
		r.items[a.DNI] = a
	}
	n := len(r.items)
	r.mu.Unlock()
	r.log.Infof("loaded %d associates", n)
	r.publish("load", "", n)
	return nil
}

// Add registers a new associate.
func (r *Registry) Add(ctx context.Context, a Associate) error {
	a = a.Normalize()
	if err := a.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	if _, ok := r.items[a.DNI]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicate, a.DNI)
	}
	if r.store != nil {
		if err := r.store.Save(ctx, a); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("save associate %s: %w", a.DNI, err)
		}
	}
	r.items[a.DNI] = a
	n := len(r.items)
	r.mu.Unlock()
	r.log.Infof("associate %s (%s) added", a.DNI, a.FullName())
	r.publish("add", a.DNI, n)
	return nil
}

// Update replaces the data of an existing associate.
func (r *Registry) Update(ctx context.Context, a Associate) error {
	a = a.Normalize()
	if err := a.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	if _, ok := r.items[a.DNI]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, a.DNI)
	}
	if r.store != nil {
		if err := r.store.Update(ctx, a); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("update associate %s: %w", a.DNI, err)
		}
	}
	r.items[a.DNI] = a
	n := len(r.items)
	r.mu.Unlock()
	r.publish("update", a.DNI, n)
	return nil
}

// Remove deletes the associate with the given DNI.
func (r *Registry) Remove(ctx context.Context, dni string) error {
	dni = Associate{DNI: dni}.Normalize().DNI
	r.mu.Lock()
	if _, ok := r.items[dni]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, dni)
	}
	if r.store != nil {
		if err := r.store.Delete(ctx, dni); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("delete associate %s: %w", dni, err)
		}
	}
	delete(r.items, dni)
	n := len(r.items)
	r.mu.Unlock()
	r.log.Infof("associate %s removed", dni)
	r.publish("remove", dni, n)
	return nil
}

// Find returns the associate with the given DNI.
func (r *Registry) Find(dni string) (Associate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[Associate{DNI: dni}.Normalize().DNI]
	return a, ok
}

// List returns a sorted copy of the associates.
func (r *Registry) List() []Associate {
	r.mu.RLock()
	out := make([]Associate, 0, len(r.items))
	for _, a := range r.items {
		out = append(out, a)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// DNIs returns the registered DNIs in List order.
func (r *Registry) DNIs() []string {
	list := r.List()
	ids := make([]string, len(list))
	for i, a := range list {
		ids[i] = a.DNI
	}
	return ids
}

// Len returns the number of associates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Registry) publish(action, dni string, count int) {
	if r.bus != nil {
		r.bus.Publish(events.AssociatesChanged{Action: action, DNI: dni, Count: count})
	}
}
