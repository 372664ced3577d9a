// Package simulation holds the services shared by the models of one run: the
// engine and clock, the data recorder and the monitoring server.
package simulation

import (
	"context"
	"errors"

	"github.com/sarchlab/obi/datarecording"
	"github.com/sarchlab/obi/monitoring"
	"github.com/sarchlab/obi/sim"
)

// A Simulation provides the services required to run clocked models.
type Simulation struct {
	id     string
	engine *sim.SerialEngine
	clock  *sim.Clock

	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor

	components    []sim.Named
	compNameIndex map[string]int
}

// ID returns the unique id of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the engine used in the simulation.
func (s *Simulation) Engine() *sim.SerialEngine {
	return s.engine
}

// Clock returns the clock that ticks the models.
func (s *Simulation) Clock() *sim.Clock {
	return s.clock
}

// DataRecorder returns the data recorder, or nil if recording is off.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// RegisterComponent registers a model with the simulation and, if
// monitoring is on, with the monitor.
func (s *Simulation) RegisterComponent(c sim.Named) {
	compName := c.Name()
	if _, found := s.compNameIndex[compName]; found {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}
}

// GetComponentByName returns the component with the given name, or nil.
func (s *Simulation) GetComponentByName(name string) sim.Named {
	i, found := s.compNameIndex[name]
	if !found {
		return nil
	}

	return s.components[i]
}

// Components returns all registered components in registration order.
func (s *Simulation) Components() []sim.Named {
	return append([]sim.Named(nil), s.components...)
}

// Start starts the monitoring server, if any.
func (s *Simulation) Start() error {
	if s.monitor == nil {
		return nil
	}

	_, err := s.monitor.StartServer()

	return err
}

// Run keeps the clock running until ctx is done or a model fails.
func (s *Simulation) Run(ctx context.Context) error {
	return s.clock.Run(ctx)
}

// Terminate closes the recorder and stops the monitoring server.
func (s *Simulation) Terminate() error {
	var errs []error

	if s.dataRecorder != nil {
		errs = append(errs, s.dataRecorder.Close())
	}

	if s.monitor != nil {
		errs = append(errs, s.monitor.StopServer())
	}

	return errors.Join(errs...)
}
