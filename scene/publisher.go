package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrNotConnected is returned when publishing without a broker connection
var ErrNotConnected = errors.New("MQTT client not connected")

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publication in time
var ErrPublishTimeout = errors.New("MQTT publish timed out")

const publishTimeout = 2 * time.Second

// Publisher sends frames and scene summaries to MQTT.
// Frames go to <prefix>/<cloudTopic> (not retained); each new scene goes
// retained to <prefix>/box so late subscribers see the current ground truth.
type Publisher struct {
	client   mqtt.Client
	config   MQTTConfig
	runID    string
	qos      byte
	mu       sync.RWMutex
	frames   uint64
	lastSize int
}

// NewPublisher creates a publisher. The config is resolved against the
// MQTT_* environment the same way InitMQTT does.
// If client is nil, every publish fails with ErrNotConnected.
func NewPublisher(client mqtt.Client, config MQTTConfig, runID string) *Publisher {
	config = ResolveMQTTConfig(config)
	return &Publisher{
		client: client,
		config: config,
		runID:  runID,
		qos:    config.QoS,
	}
}

// CloudTopic returns the topic frames are published to
func (p *Publisher) CloudTopic() string {
	return fmt.Sprintf("%s/%s", p.config.PublishPrefix, p.config.CloudTopic)
}

// BoxTopic returns the topic scene summaries are published to
func (p *Publisher) BoxTopic() string {
	return fmt.Sprintf("%s/box", p.config.PublishPrefix)
}

// SetQoS changes the QoS used for frames
func (p *Publisher) SetQoS(qos byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.qos = qos
}

// PublishFrame encodes and publishes one frame
func (p *Publisher) PublishFrame(frame *PointCloud) error {
	if p.client == nil || !p.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := EncodeFrame(frame, p.config.Encoding, p.runID)
	if err != nil {
		return err
	}

	p.mu.RLock()
	qos := p.qos
	p.mu.RUnlock()

	if err := p.publish(p.CloudTopic(), qos, false, payload); err != nil {
		return err
	}

	p.mu.Lock()
	p.frames++
	p.lastSize = len(payload)
	p.mu.Unlock()
	return nil
}

// ObserveScene publishes the scene summary, retained, to the box topic
func (p *Publisher) ObserveScene(s *Scene) {
	if p.client == nil || !p.client.IsConnected() {
		return
	}

	payload, err := json.Marshal(s.Summarize(p.runID))
	if err != nil {
		log.Printf("[MQTT] Error marshaling scene summary: %v", err)
		return
	}

	// QoS 1 so the retained ground truth is not lost on a busy broker
	if err := p.publish(p.BoxTopic(), 1, true, payload); err != nil {
		log.Printf("[MQTT] Error publishing scene: %v", err)
		return
	}
	log.Printf("[MQTT] Published box pose (%.3f, %.3f) yaw=%.1f° to %s",
		s.Pose.X, s.Pose.Y, s.Pose.YawDegrees(), p.BoxTopic())
}

func (p *Publisher) publish(topic string, qos byte, retain bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: %w", topic, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// FramesPublished returns the number of frames published and the size in
// bytes of the last payload
func (p *Publisher) FramesPublished() (uint64, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.frames, p.lastSize
}
