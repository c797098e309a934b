package kernel

import (
	"fmt"
	"sync"
)

// Scene is a named object list with unique names. Hosts embed it to
// implement Insert, Remove and Objects. It is safe for concurrent use.
type Scene struct {
	mu      sync.Mutex
	objects []Object
}

// Insert appends s under name.
func (sc *Scene) Insert(s Solid, xf Transform, name string) error {
	if name == "" {
		return fmt.Errorf("scene: empty object name")
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, o := range sc.objects {
		if o.Name == name {
			return fmt.Errorf("scene: object %q already exists", name)
		}
	}
	sc.objects = append(sc.objects, Object{Name: name, Solid: s, Transform: xf})
	return nil
}

// Remove deletes the named object.
func (sc *Scene) Remove(name string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for i, o := range sc.objects {
		if o.Name == name {
			sc.objects = append(sc.objects[:i], sc.objects[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("scene: no object %q", name)
}

// Objects lists the scene in insertion order.
func (sc *Scene) Objects() []Object {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]Object(nil), sc.objects...)
}

// Lookup returns the named object.
func (sc *Scene) Lookup(name string) (Object, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, o := range sc.objects {
		if o.Name == name {
			return o, true
		}
	}
	return Object{}, false
}
