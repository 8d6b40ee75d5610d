// Package touchpub watches the touch status of an MPR121 and publishes every
// touch and release to an MQTT broker.
//
// Events go to "<topic>/<electrode>" with payload "touched" or "released".
// The proximity channel, when enabled, is electrode 12.
package touchpub

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/exp/slog"

	"github.com/ajanata/mpr121-drivers/mpr121"
)

const (
	DefaultInterval = 50 * time.Millisecond
	DefaultTopic    = "mpr121"

	channels = mpr121.NumElectrodes + 1
)

var ErrTimeout = errors.New("touchpub: mqtt timeout")

// StatusReader is implemented by *mpr121.Device.
type StatusReader interface {
	Status() (mpr121.Report, error)
}

type Publisher interface {
	Publish(topic string, payload []byte) error
}

type Watcher struct {
	Sensor    StatusReader
	Publisher Publisher
	Topic     string
	Interval  time.Duration
	Logger    slog.Logger
}

// Run polls the sensor until ctx is done or a read or publish fails. The
// first poll reports every channel that is already touched.
func (w *Watcher) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	topic := w.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	log := w.Logger
	if log.Handler() == nil {
		log = slog.Default()
	}
	log = log.With("topic", topic)

	t := time.NewTicker(interval)
	defer t.Stop()

	var prev mpr121.Report
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := w.Sensor.Status()
		if err != nil {
			log.Error("reading touch status", err)
			return err
		}
		for ch := uint8(0); ch < channels; ch++ {
			if r.Touched(ch) == prev.Touched(ch) {
				continue
			}
			payload := "released"
			if r.Touched(ch) {
				payload = "touched"
			}
			log.Info("touch event", "electrode", ch, "state", payload)
			err := w.Publisher.Publish(fmt.Sprintf("%s/%d", topic, ch), []byte(payload))
			if err != nil {
				log.Error("publishing touch event", err, "electrode", ch)
				return err
			}
		}
		prev = r

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

type mqttPublisher struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
}

// NewMQTTPublisher publishes through a connected paho client. Messages are
// not retained.
func NewMQTTPublisher(client mqtt.Client, qos byte, timeout time.Duration) Publisher {
	return &mqttPublisher{client: client, qos: qos, timeout: timeout}
}

func (p *mqttPublisher) Publish(topic string, payload []byte) error {
	tok := p.client.Publish(topic, p.qos, false, payload)
	if !tok.WaitTimeout(p.timeout) {
		return ErrTimeout
	}
	return tok.Error()
}

// Dial connects to broker, e.g. "tcp://localhost:1883".
func Dial(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(timeout) {
		return nil, ErrTimeout
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("touchpub: connect %s: %w", broker, err)
	}
	return client, nil
}
