package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/shlex"
	"golang.org/x/exp/slog"

	"github.com/ajanata/mpr121-drivers/mpr121"
	"github.com/ajanata/mpr121-drivers/touchpub"
)

const mqttTimeout = 10 * time.Second

// session runs commands against one device, either once from the command
// line or line by line in shell mode.
type session struct {
	dev *mpr121.Device
	cfg mpr121.Config
	log slog.Logger
	out io.Writer
	in  io.Reader

	clientID string
	qos      byte
}

func usageError(syntax string) error {
	return fmt.Errorf("%w: %s", errUsage, syntax)
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return uint8(v), nil
}

func (s *session) exec(ctx context.Context, args []string) error {
	switch args[0] {
	case "init":
		if len(args) != 1 {
			return usageError("init")
		}
		if err := s.dev.Configure(s.cfg); err != nil {
			return err
		}
		s.log.Info("configured", "touch", s.cfg.TouchThreshold, "release", s.cfg.ReleaseThreshold, "autoconfig", s.cfg.AutoConfig)
		return nil

	case "dump":
		if len(args) != 1 {
			return usageError("dump")
		}
		return s.dev.DumpDiagnostics(s.out)

	case "status":
		if len(args) != 1 {
			return usageError("status")
		}
		r, err := s.dev.Status()
		if err != nil {
			return err
		}
		fmt.Fprint(s.out, "touched:")
		n := 0
		for ch := uint8(0); ch <= mpr121.NumElectrodes; ch++ {
			if r.Touched(ch) {
				fmt.Fprintf(s.out, " %d", ch)
				n++
			}
		}
		if n == 0 {
			fmt.Fprint(s.out, " none")
		}
		fmt.Fprintln(s.out)
		return nil

	case "read":
		if len(args) != 2 {
			return usageError("read <reg>")
		}
		reg, err := parseByte(args[1])
		if err != nil {
			return err
		}
		v, err := s.dev.ReadRegister(reg)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "0x%02X = 0x%02X\n", reg, v)
		return nil

	case "write":
		if len(args) != 3 {
			return usageError("write <reg> <value>")
		}
		reg, err := parseByte(args[1])
		if err != nil {
			return err
		}
		v, err := parseByte(args[2])
		if err != nil {
			return err
		}
		return s.dev.WriteRegister(reg, v)

	case "watch":
		if len(args) < 2 || len(args) > 3 {
			return usageError("watch <broker> [topic]")
		}
		return s.watch(ctx, args[1:])

	case "shell":
		if len(args) != 1 {
			return usageError("shell")
		}
		return s.shell(ctx)

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (s *session) watch(ctx context.Context, args []string) error {
	client, err := touchpub.Dial(args[0], s.clientID, mqttTimeout)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	w := &touchpub.Watcher{
		Sensor:    s.dev,
		Publisher: touchpub.NewMQTTPublisher(client, s.qos, mqttTimeout),
		Logger:    s.log.With("broker", args[0]),
	}
	if len(args) > 1 {
		w.Topic = args[1]
	}
	s.log.Info("watching")
	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// shell reads one command per line, split like a shell would. Errors are
// printed and do not end the session; "exit" or end of input does.
func (s *session) shell(ctx context.Context) error {
	sc := bufio.NewScanner(s.in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		args, err := shlex.Split(sc.Text())
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Fprintln(s.out, "error: already in a shell")
			continue
		}
		if err := s.exec(ctx, args); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
	return sc.Err()
}
