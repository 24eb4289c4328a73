// Command solace runs the C-library shim as an ordinary process: a
// hosted kernel, a bootstrapped heap, and the console multiplexer wired
// to the real terminal. Type lines and they come back through the full
// read/write path; a line starting with 'q' quits.
package main

import (
	"bytes"
	"flag"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"solace/src/console"
	"solace/src/heap"
	"solace/src/hosted"
	"solace/src/lib/trust"
	"solace/src/shim"
)

type config struct {
	Heap    heap.Config    `yaml:"heap"`
	Console console.Config `yaml:"console"`
	Hosted  hosted.Config  `yaml:"hosted"`
}

func (c *config) registerFlags(f *flag.FlagSet) {
	c.Heap.RegisterFlags(f)
	c.Console.RegisterFlags(f)
	c.Hosted.RegisterFlags(f)
}

func main() {
	logger := trust.NewDefault()

	var cfg config
	configFile := flag.String("config.file", "", "Optional YAML config; overrides flag values.")
	cfg.registerFlags(flag.CommandLine)
	flag.Parse()

	if *configFile != "" {
		raw, err := os.ReadFile(*configFile)
		if err != nil {
			logger.Fatalf(1, "reading config: %v", err)
		}
		if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
			logger.Fatalf(1, "parsing config: %v", err)
		}
	}

	k := hosted.New(cfg.Hosted, logger.Kit())
	reg := prometheus.NewRegistry()

	region, err := heap.Bootstrap(cfg.Heap, k, logger.Kit(), reg)
	if err != nil {
		// Mapping failures at boot are not survivable.
		logger.Fatalf(1, "heap bootstrap: %v", err)
	}

	con := console.New(cfg.Console, k, logger.Kit(), reg)
	sh := shim.New(region, con, k, logger.Kit())

	term, err := hosted.OpenTTY()
	if err != nil {
		logger.Fatalf(1, "opening terminal: %v", err)
	}
	defer term.Close()

	con.InstallPrintkHook(term.PutChar)
	con.InstallOutputHook(term.PutChar)
	con.InstallInputHook(term.GetChar)

	con.Printk("solace up: heap base %#x, %d bytes\n", region.Base(), region.Capacity())

	var g errgroup.Group
	g.Go(func() error {
		buf := make([]byte, 128)
		for {
			n := sh.Read(0, buf)
			if n == 0 {
				return nil
			}
			if buf[0] == 'q' {
				return nil
			}
			sh.Write(1, bytes.ToUpper(buf[:n]))
		}
	})
	if err := g.Wait(); err != nil {
		logger.Errorf("echo loop: %v", err)
	}
	con.Printk("bye\n")
}
