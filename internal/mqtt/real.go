package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/pi-cooler/internal/events"
)

const (
	// bufferSize is how many messages are kept while the broker is unreachable.
	bufferSize = 100

	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed, oldest first, on reconnection.
type RealPublisher struct {
	client paho.Client
	now    func() time.Time

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool // true once the first connection succeeded
	online    bool // between onConnect and the next connection loss
}

// NewRealPublisher creates a publisher for the given broker. It connects in
// the background and keeps retrying; it never blocks on the broker.
func NewRealPublisher(broker, clientID string) *RealPublisher {
	p := &RealPublisher{
		now: time.Now,
		buf: newRingBuffer(bufferSize),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// newPublisherWithClient wraps an existing client. Used by tests.
func newPublisherWithClient(client paho.Client, now func() time.Time) *RealPublisher {
	return &RealPublisher{
		client: client,
		now:    now,
		buf:    newRingBuffer(bufferSize),
	}
}

// onConnect replays buffered messages. After a reconnection it first
// announces RECONNECTED on the system topic.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	p.online = true
	msgs, dropped := p.buf.drainAll()
	p.mu.Unlock()

	if reconnect {
		log.Printf("mqtt: reconnected")
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		c.Publish(TopicSystem, 1, false, payload)
	} else {
		log.Printf("mqtt: connected")
	}

	if len(msgs) > 0 {
		log.Printf("mqtt: replaying %d buffered messages (%d dropped)", len(msgs), dropped)
	}
	for _, m := range msgs {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.online = false
	p.mu.Unlock()
	log.Printf("mqtt: connection lost: %v", err)
}

// send publishes, or buffers the message when the connection is down or
// the publish does not complete in time. Until onConnect has drained the
// buffer, new messages queue behind it.
func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.online || !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		p.mu.Lock()
		p.buf.push(msg)
		p.mu.Unlock()
		return fmt.Errorf("publish timeout on %s, buffered", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishFan sends a fan event to the MQTT broker.
func (p *RealPublisher) PublishFan(event events.FanChecked) error {
	payload, err := FormatFanPayload(event)
	if err != nil {
		return fmt.Errorf("format fan payload: %w", err)
	}
	// QoS 0, not retained. A check that kept the level is only a reading,
	// so while offline the newest one replaces the last.
	return p.send(bufferedMsg{topic: TopicFan, payload: payload, superseded: !event.Changed})
}

// PublishButton sends a button activation to the MQTT broker.
func (p *RealPublisher) PublishButton(event events.ButtonActivated) error {
	payload, err := FormatButtonPayload(event)
	if err != nil {
		return fmt.Errorf("format button payload: %w", err)
	}
	// QoS 1: a command ran, make sure the broker hears about it
	return p.send(bufferedMsg{topic: TopicButton, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns how many messages are waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
