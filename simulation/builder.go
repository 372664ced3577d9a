package simulation

import (
	"github.com/rs/xid"

	"github.com/sarchlab/obi/datarecording"
	"github.com/sarchlab/obi/monitoring"
	"github.com/sarchlab/obi/sim"
)

// Builder can be used to build a simulation.
type Builder struct {
	clockName      string
	recording      bool
	outputFileName string
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
}

// MakeBuilder creates a new builder. Recording and monitoring are off.
func MakeBuilder() Builder {
	return Builder{
		clockName: "Clk",
	}
}

// WithClockName sets the name of the clock.
func (b Builder) WithClockName(name string) Builder {
	b.clockName = name
	return b
}

// WithRecording makes the simulation record into a SQLite file.
func (b Builder) WithRecording() Builder {
	b.recording = true
	return b
}

// WithOutputFileName sets the file name of the recording, without the
// .sqlite3 extension. It turns recording on.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.recording = true
	b.outputFileName = filename

	return b
}

// WithMonitoring makes the simulation serve the monitoring page.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowser opens the monitoring page once the server starts.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && (b.monitorPort != 0 || b.openBrowser) {
		panic("monitor options cannot be set when monitoring is disabled")
	}
}

// Build builds the simulation. The monitoring server is started by Start.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	s := &Simulation{
		id:            xid.New().String(),
		compNameIndex: make(map[string]int),
	}

	s.engine = sim.NewSerialEngine()
	s.clock = sim.NewClock(b.clockName, s.engine)

	if b.recording {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "obi_sim_" + s.id
		}

		recorder, err := datarecording.New(outputPath)
		if err != nil {
			return nil, err
		}

		s.dataRecorder = recorder
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}

		if b.openBrowser {
			s.monitor.WithBrowser()
		}

		s.monitor.RegisterEngine(s.engine)
	}

	return s, nil
}
