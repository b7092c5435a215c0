package provider

import "math/rand/v2"

// Options configure an adapter. Without an APIKey the adapter is simulated.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string

	// Simulation overrides the adapter's default simulated behaviour.
	Simulation *Simulation
	// Rand seeds the simulation; nil draws from a random source.
	Rand rand.Source
}

func (o Options) simulation(def Simulation) Simulation {
	if o.Simulation != nil {
		return *o.Simulation
	}
	return def
}
