// Command mpr121ctl configures and inspects an MPR121 touch sensor attached
// to a Linux host.
//
// Usage:
//
//	mpr121ctl [flags] init
//	mpr121ctl [flags] dump
//	mpr121ctl [flags] status
//	mpr121ctl [flags] read <reg>
//	mpr121ctl [flags] write <reg> <value>
//	mpr121ctl [flags] watch <broker> [topic]
//	mpr121ctl [flags] shell
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"golang.org/x/exp/slog"

	"github.com/ajanata/mpr121-drivers"
	"github.com/ajanata/mpr121-drivers/i2cdev"
	"github.com/ajanata/mpr121-drivers/i2chost"
	"github.com/ajanata/mpr121-drivers/mpr121"
)

var (
	busName    = flag.String("bus", "", "I2C bus name, e.g. 1 (default: first bus found)")
	devPath    = flag.String("dev", "", "use this i2c-dev file instead, e.g. /dev/i2c-1")
	address    = flag.Uint("addr", mpr121.DefaultAddress, "device address")
	touch      = flag.Uint("touch", 12, "touch threshold")
	release    = flag.Uint("release", 6, "release threshold")
	autoconfig = flag.Bool("autoconfig", false, "let the chip search charge current and time")
	clientID   = flag.String("id", "mpr121ctl", "MQTT client id for watch")
	qos        = flag.Uint("qos", 0, "MQTT QoS for watch")
)

var errUsage = errors.New("usage")

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] init|dump|status|read|write|watch|shell [args]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	log := slog.New(slog.NewTextHandler(os.Stderr))

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cfg, err := config()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		log.Error("mpr121ctl", err)
		os.Exit(1)
	}
}

func config() (mpr121.Config, error) {
	if *address > 0x7F {
		return mpr121.Config{}, fmt.Errorf("-addr 0x%X is not a 7-bit address", *address)
	}
	if *touch > 0xFF || *release > 0xFF {
		return mpr121.Config{}, errors.New("-touch and -release must fit in a byte")
	}
	if *qos > 2 {
		return mpr121.Config{}, errors.New("-qos must be 0, 1 or 2")
	}
	return mpr121.Config{
		Address:          uint8(*address),
		TouchThreshold:   uint8(*touch),
		ReleaseThreshold: uint8(*release),
		AutoConfig:       *autoconfig,
	}, nil
}

func openBus(log slog.Logger, addr uint8) (drivers.I2C, error) {
	if *devPath != "" {
		b, err := i2cdev.Open(*devPath, addr)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	b, err := i2chost.Open(*busName)
	if err != nil {
		return nil, err
	}
	if err := b.SetSpeed(i2chost.MaxSpeed); err != nil {
		// not every host driver can change the clock; the default works
		log.Warn("keeping default bus speed", "bus", b.String(), "err", err)
	}
	return b, nil
}

func run(ctx context.Context, log slog.Logger, cfg mpr121.Config, args []string) (err error) {
	bus, err := openBus(log, cfg.Address)
	if err != nil {
		return err
	}
	d := mpr121.New(bus)
	d.SetAddress(cfg.Address)
	defer func() {
		err = multierr.Append(err, d.Close())
	}()

	s := &session{
		dev: d,
		cfg: cfg,
		log: log.With("addr", fmt.Sprintf("0x%02X", cfg.Address)),
		out: os.Stdout,
		in:  os.Stdin,

		clientID: *clientID,
		qos:      byte(*qos),
	}
	return s.exec(ctx, args)
}
