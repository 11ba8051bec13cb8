package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/flowgrid/graph-runtime/config"
	"github.com/flowgrid/graph-runtime/device"
	_ "github.com/flowgrid/graph-runtime/device/interp"
	_ "github.com/flowgrid/graph-runtime/device/wasm"
	"github.com/flowgrid/graph-runtime/graph"
	"github.com/flowgrid/graph-runtime/host"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to device pool TOML (default: one interpreter device)")
		netName     = flag.String("net", "", "Demo network to run")
		inputStr    = flag.String("in", "", "Input vector (comma-separated floats)")
		list        = flag.Bool("list", false, "List demo networks and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *list {
		for _, g := range demoGraphs() {
			fmt.Printf("  %s  %s\n", g.Name(), describeGraph(g))
		}
		return
	}

	if *interactive {
		if err := runInteractive(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *netName == "" {
		fmt.Fprintln(os.Stderr, "Usage: graphhost -net <name> -in 1,2,3 [-config devices.toml]")
		fmt.Fprintln(os.Stderr, "       graphhost -list")
		fmt.Fprintln(os.Stderr, "       graphhost -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(*configPath, *netName, *inputStr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newManager builds a host manager from the optional config file,
// falling back to a single interpreter device.
func newManager(configPath string) (*host.Manager, error) {
	configs := []device.Config{{Kind: device.Interpreter}}
	logger := zap.NewNop()

	if configPath != "" {
		f, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		configs = f.DeviceConfigs()
		if f.LogLevel == "debug" {
			if logger, err = zap.NewDevelopment(); err != nil {
				return nil, err
			}
		}
	}

	return host.New(configs, host.WithLogger(logger))
}

func run(configPath, netName, inputStr string) error {
	m, err := newManager(configPath)
	if err != nil {
		return err
	}
	defer m.Close()

	var g *graph.Graph
	for _, demo := range demoGraphs() {
		if demo.Name() == netName {
			g = demo
			break
		}
	}
	if g == nil {
		return fmt.Errorf("unknown network %q (try -list)", netName)
	}

	if err := m.AddNetwork(g); err != nil {
		return err
	}

	values, err := parseVector(inputStr)
	if err != nil {
		return err
	}

	ectx := graph.NewContext()
	for _, in := range g.Inputs() {
		if len(values) != in.Size {
			return fmt.Errorf("input %q needs %d values, got %d", in.Name, in.Size, len(values))
		}
		ectx.Bind(in.Name, graph.NewVector(values...))
	}

	fmt.Printf("Devices: %v\n", m.Devices())
	fmt.Printf("Running %s(%s)...\n", netName, inputStr)

	done := make(chan error, 1)
	m.RunNetwork(netName, ectx, func(id host.RunIdentifier, err error, returned *graph.ExecutionContext) {
		if err == nil {
			for _, out := range g.Outputs() {
				if t, ok := returned.Tensor(out.Name); ok {
					fmt.Printf("  %s = %v\n", out.Name, t.Data())
				}
			}
		}
		done <- err
	})
	return <-done
}

func parseVector(s string) ([]float32, error) {
	if s == "" {
		return nil, fmt.Errorf("no input vector; use -in 1,2,3")
	}
	parts := strings.Split(s, ",")
	values := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parse input %q: %w", p, err)
		}
		values[i] = float32(v)
	}
	return values, nil
}

// demoGraphs builds the networks available to run from the CLI.
func demoGraphs() []*graph.Graph {
	tanh := graph.New("tanh3")
	tanh.Save("save", tanh.Tanh("tanh1", tanh.Input("X", 3)))

	squash := graph.New("squash4")
	squash.Save("save", squash.Scale("scale1", squash.Sigmoid("sigmoid1", squash.Input("X", 4)), 2))

	sumsq := graph.New("sumsq3")
	x := sumsq.Input("X", 3)
	sumsq.Save("save", sumsq.Mul("sq", x, x))

	return []*graph.Graph{tanh, squash, sumsq}
}

func describeGraph(g *graph.Graph) string {
	var ops []string
	for _, n := range g.Nodes() {
		if n.Op != graph.OpInput && n.Op != graph.OpSave {
			ops = append(ops, n.Op.String())
		}
	}
	in := g.Inputs()[0]
	return fmt.Sprintf("%s(%s[%d])", strings.Join(ops, "∘"), in.Name, in.Size)
}
