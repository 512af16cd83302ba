package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/micro32-project/micro32/boot"
	"github.com/micro32-project/micro32/machine"
)

var bootFlags = struct {
	ramBase     string
	ramSize     string
	ramEnd      string
	bootArg     string
	zero        bool
	record      bool
	output      string
	monitor     bool
	monitorPort int
	wait        bool
}{}

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Assemble a machine and run the Micro32 boot sequence.",
	Run:   runBoot,
}

func init() {
	f := bootCmd.Flags()
	f.StringVar(&bootFlags.ramBase, "ram-base", "",
		"explicit RAM base address (decimal or 0x hex)")
	f.StringVar(&bootFlags.ramSize, "ram-size", "",
		"explicit RAM size in bytes (decimal or 0x hex)")
	f.StringVar(&bootFlags.ramEnd, "ram-end", "",
		"loader-provided end-of-RAM marker address")
	f.StringVar(&bootFlags.bootArg, "boot-arg", "0",
		"value the loader leaves in the a1 register")
	f.BoolVar(&bootFlags.zero, "zero", false,
		"zero the reserved region during boot")
	f.BoolVar(&bootFlags.record, "record", false,
		"record boot events into an SQLite database")
	f.StringVar(&bootFlags.output, "output", "",
		"output database name for --record")
	f.BoolVar(&bootFlags.monitor, "monitor", false,
		"serve the machine state over HTTP")
	f.IntVar(&bootFlags.monitorPort, "monitor-port", 0,
		"port for --monitor, random if unset")
	f.BoolVar(&bootFlags.wait, "wait", false,
		"keep the machine running after boot, for --monitor")

	rootCmd.AddCommand(bootCmd)
}

func runBoot(_ *cobra.Command, _ []string) {
	b := machine.MakeBuilder()

	if bootFlags.ramBase != "" || bootFlags.ramSize != "" {
		if bootFlags.ramBase == "" || bootFlags.ramSize == "" {
			fail("--ram-base and --ram-size must be used together")
		}

		b = b.WithRAMBounds(
			parseAddress("--ram-base", bootFlags.ramBase),
			parseAddress("--ram-size", bootFlags.ramSize))
	}

	if bootFlags.ramEnd != "" {
		b = b.WithRAMEndMarker(parseAddress("--ram-end", bootFlags.ramEnd))
	}

	if bootFlags.record {
		b = b.WithDataRecording(bootFlags.output)
	}

	if bootFlags.monitor {
		b = b.WithMonitoring()
		if bootFlags.monitorPort != 0 {
			b = b.WithMonitorPort(bootFlags.monitorPort)
		}
	}

	m := b.Build()
	defer m.Terminate()

	arg := uint32(parseAddress("--boot-arg", bootFlags.bootArg))

	report, err := boot.Run(m, arg, bootFlags.zero)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Boot failed: %s\n", err)
		m.Terminate()
		atexit.Exit(1)
	}

	fmt.Printf("Machine %s booted\n", m.ID)
	fmt.Printf("RAM base 0x%08X, size %d bytes\n",
		report.RAMBase, report.RAMSize)
	fmt.Printf("Reserved region %s\n", report.Reserved)

	if bootFlags.wait {
		select {}
	}
}

func parseAddress(flag, s string) uint64 {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		fail(fmt.Sprintf("invalid value for %s: %s", flag, s))
	}

	return v
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	atexit.Exit(1)
}
