// audacctl talks to a single AUDAC device from the command line, without a
// running daemon. It is the operator's bench tool for probing, reading state,
// and issuing one-off mutations.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/audacd/internal/device"
	"github.com/danmuck/audacd/internal/transport"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: audacctl [flags] <command> [args]

commands:
  probe                          check device reachability
  state                          print the full state snapshot as JSON
  raw <command> [argument]       send one raw command
  volume <zone> <db>             set zone volume (0..70 dB attenuation)
  source <zone> <input>          route an input (0..8) to a zone
  mute <zone> on|off             set zone mute
  gain <slot> <value>            set slot gain
  pairing <slot> on|off          set bluetooth pairing on a slot
  trigger <slot> <contact> start|stop  fire a contact trigger

flags:
`)
	flag.PrintDefaults()
}

func main() {
	host := flag.String("host", "", "device host (required)")
	port := flag.Int("port", 5001, "device TCP port")
	model := flag.String("model", "mtx48", "device model: mtx48|mtx88|xmp44")
	address := flag.String("address", "", "device protocol address (default X001, D001 for xmp44)")
	source := flag.String("source", "", "source id stamped on outgoing frames (max 4 chars)")
	timeout := flag.Duration("timeout", 5*time.Second, "per-exchange timeout")
	flag.Usage = usage
	flag.Parse()

	if *host == "" || flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	m := device.Model(*model)
	if !m.Known() {
		fatal(fmt.Errorf("unknown model %q", *model))
	}
	if *address == "" {
		if m == device.ModelXMP44 {
			*address = "D001"
		} else {
			*address = "X001"
		}
	}

	d := transport.NewDispatcher(
		transport.Endpoint{Host: *host, Port: *port}, *address, *source, zerolog.Nop())
	d.Timeout = *timeout

	var driver device.Driver
	var matrix *device.Matrix
	var player *device.Player
	if m == device.ModelXMP44 {
		player = device.NewPlayer(d, nil)
		driver = player
	} else {
		matrix = device.NewMatrix(d, m, 0)
		driver = matrix
	}

	ctx := context.Background()
	args := flag.Args()
	if err := run(ctx, args, driver, matrix, player); err != nil {
		fatal(err)
	}
}

func run(ctx context.Context, args []string, driver device.Driver, matrix *device.Matrix, player *device.Player) error {
	switch args[0] {
	case "probe":
		if err := driver.Probe(ctx); err != nil {
			return err
		}
		fmt.Println("reachable")
		return nil

	case "state":
		state, err := driver.State(ctx, nil)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil

	case "raw":
		if len(args) < 2 {
			return fmt.Errorf("raw needs a command")
		}
		argument := "0"
		if len(args) > 2 {
			argument = args[2]
		}
		reply, err := driver.Raw(ctx, args[1], argument)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil

	case "volume":
		zone, db, err := twoInts(args, "volume <zone> <db>")
		if err != nil {
			return err
		}
		return needMatrix(matrix, func() error { return matrix.SetZoneVolume(ctx, zone, db) })

	case "source":
		if len(args) != 3 {
			return fmt.Errorf("usage: source <zone> <input>")
		}
		zone, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("zone must be an integer")
		}
		return needMatrix(matrix, func() error { return matrix.SetZoneSource(ctx, zone, args[2]) })

	case "mute":
		zone, on, err := intAndSwitch(args, "mute <zone> on|off")
		if err != nil {
			return err
		}
		return needMatrix(matrix, func() error { return matrix.SetZoneMute(ctx, zone, on) })

	case "gain":
		slot, value, err := twoInts(args, "gain <slot> <value>")
		if err != nil {
			return err
		}
		return needPlayer(player, func() error { return player.SetSlotGain(ctx, slot, value) })

	case "pairing":
		slot, on, err := intAndSwitch(args, "pairing <slot> on|off")
		if err != nil {
			return err
		}
		return needPlayer(player, func() error { return player.SetPairing(ctx, slot, on) })

	case "trigger":
		if len(args) != 4 {
			return fmt.Errorf("usage: trigger <slot> <contact> start|stop")
		}
		slot, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("slot must be an integer")
		}
		contact, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("contact must be an integer")
		}
		start, err := onOff(args[3], "start", "stop")
		if err != nil {
			return err
		}
		if player == nil {
			return fmt.Errorf("trigger requires model xmp44")
		}
		reply, err := player.Trigger(ctx, slot, contact, start)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func twoInts(args []string, usage string) (int, int, error) {
	if len(args) != 3 {
		return 0, 0, fmt.Errorf("usage: %s", usage)
	}
	a, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("usage: %s", usage)
	}
	b, err := strconv.Atoi(args[2])
	if err != nil {
		return 0, 0, fmt.Errorf("usage: %s", usage)
	}
	return a, b, nil
}

func intAndSwitch(args []string, usage string) (int, bool, error) {
	if len(args) != 3 {
		return 0, false, fmt.Errorf("usage: %s", usage)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, false, fmt.Errorf("usage: %s", usage)
	}
	on, err := onOff(args[2], "on", "off")
	if err != nil {
		return 0, false, err
	}
	return n, on, nil
}

func onOff(raw, yes, no string) (bool, error) {
	switch raw {
	case yes:
		return true, nil
	case no:
		return false, nil
	default:
		return false, fmt.Errorf("expected %s or %s, got %q", yes, no, raw)
	}
}

func needMatrix(matrix *device.Matrix, op func() error) error {
	if matrix == nil {
		return fmt.Errorf("command requires a matrix-mixer model")
	}
	if err := op(); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func needPlayer(player *device.Player, op func() error) error {
	if player == nil {
		return fmt.Errorf("command requires model xmp44")
	}
	if err := op(); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "audacctl: %v\n", err)
	os.Exit(1)
}
