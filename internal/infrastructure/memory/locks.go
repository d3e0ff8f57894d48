package memory

import (
	"context"
	"fmt"
	"sync"
)

// keyLocks un semáforo de capacidad 1 por llave.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]chan struct{}
}

func newKeyLocks() *keyLocks {
	return &keyLocks{m: make(map[string]chan struct{})}
}

func (k *keyLocks) sem(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.m[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.m[key] = ch
	}
	return ch
}

// acquire espera la llave o la cancelación del contexto.
func (k *keyLocks) acquire(ctx context.Context, key string) error {
	select {
	case k.sem(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("memory: esperando candado %s: %w", key, ctx.Err())
	}
}

func (k *keyLocks) release(key string) {
	<-k.sem(key)
}
