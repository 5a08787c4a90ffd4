// Package config holds the engine's startup configuration: validation
// layers, log level, and initial window extent, loaded from environment
// variables.
package config

import "fmt"

// Usage is a generic property bag (string/int/bool/float maps plus a
// linked-usage chain), kept for its Print() diagnostic and its
// HasNext/GetLinkedUsage chaining, repurposed here to carry engine startup
// properties instead of a speculative multi-GPU device-group usage layout.
type Usage struct {
	Name         string
	StringProps  map[string]string
	IntProps     map[string]int
	BoolProps    map[string]bool
	FloatProps   map[string]float32
	LinkedUsage  *Usage
}

func NewUsage(name string, defaultSize uint) *Usage {
	return &Usage{
		Name:        name,
		StringProps: make(map[string]string, defaultSize),
		IntProps:    make(map[string]int, defaultSize),
		BoolProps:   make(map[string]bool, defaultSize),
		FloatProps:  make(map[string]float32, defaultSize),
	}
}

func (u *Usage) HasNext() bool {
	return u.LinkedUsage != nil
}

func (u *Usage) GetLinkedUsage() (*Usage, error) {
	if !u.HasNext() {
		return nil, fmt.Errorf("config: usage %q has no linked usage", u.Name)
	}
	return u.LinkedUsage, nil
}

func (u *Usage) Print() {
	fmt.Print(u.StringProps)
	fmt.Print(u.BoolProps)
	fmt.Print(u.IntProps)
	fmt.Print(u.FloatProps)
	if u.HasNext() {
		u.LinkedUsage.Print()
	}
}
