package neuro

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// registrar is a deferred batch of registrations.
type registrar struct {
	fn   func() error
	once sync.Once
	err  error
}

var (
	registrars = xsync.NewMap[string, *registrar]()
	pending    atomic.Int32
)

// AddRegistrar queues fn to run once, the first time any top-level read or
// write happens (or TryAutoRegister is called). Packages use it to register
// their types lazily without init-order concerns. It returns false if a
// registrar with the same name was already added.
func AddRegistrar(name string, fn func() error) bool {
	_, loaded := registrars.LoadOrStore(name, &registrar{fn: fn})
	if !loaded {
		pending.Add(1)
	}
	return !loaded
}

// TryAutoRegister runs every queued registrar that has not run yet. It is
// called by all top-level entry points and is cheap once nothing is pending.
// A failing registrar reports the same error on every later call.
func TryAutoRegister() error {
	if pending.Load() == 0 {
		return failedRegistrars()
	}
	var errs []error
	registrars.Range(func(name string, r *registrar) bool {
		r.once.Do(func() {
			pending.Add(-1)
			if err := r.fn(); err != nil {
				r.err = fmt.Errorf("registrar %q: %w", name, err)
				failed.Store(true)
				log().Error("neuro: auto-registration failed", "registrar", name, "error", err)
				return
			}
			log().Debug("neuro: auto-registration done", "registrar", name)
		})
		if r.err != nil {
			errs = append(errs, r.err)
		}
		return true
	})
	return errors.Join(errs...)
}

var failed atomic.Bool

func failedRegistrars() error {
	if !failed.Load() {
		return nil
	}
	var errs []error
	registrars.Range(func(_ string, r *registrar) bool {
		if r.err != nil {
			errs = append(errs, r.err)
		}
		return true
	})
	return errors.Join(errs...)
}
