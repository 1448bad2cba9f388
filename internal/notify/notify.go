// Package notify delivers reminder alerts outside the tracker.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/oilchange-tracker/internal/models"
)

// Kind tells what an alert is about.
type Kind string

const (
	KindMaintenanceDue   Kind = "maintenance_due"
	KindWarrantyExpiring Kind = "warranty_expiring"
)

// Alert is one reminder about one record.
type Alert struct {
	Kind          Kind            `json:"kind"`
	RecordID      models.RecordID `json:"recordId"`
	Client        string          `json:"client"`
	Vehicle       string          `json:"vehicle"`
	Phone         string          `json:"phone,omitempty"`
	DueDate       models.Date     `json:"dueDate"`
	DaysRemaining int             `json:"daysRemaining"`
	Status        string          `json:"status"`
	Message       string          `json:"message"`
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
	Close()
}

// Nop logs alerts at debug level and delivers nothing.
type Nop struct{}

func (Nop) Notify(_ context.Context, a Alert) error {
	log.WithFields(log.Fields{"kind": a.Kind, "id": a.RecordID}).Debug("Alert dropped, no notifier configured")
	return nil
}

func (Nop) Close() {}

// Publisher is the part of an MQTT client the notifier uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTNotifier publishes each alert as JSON on a topic.
type MQTTNotifier struct {
	client  Publisher
	topic   string
	qos     byte
	timeout time.Duration
}

// NewMQTTNotifier wraps an already connected client.
func NewMQTTNotifier(client Publisher, topic string) *MQTTNotifier {
	return &MQTTNotifier{client: client, topic: topic, qos: 1, timeout: 5 * time.Second}
}

// DialMQTT connects to broker and returns a notifier publishing on topic.
func DialMQTT(ctx context.Context, broker, clientID, topic string) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	log.WithFields(log.Fields{"broker": broker, "topic": topic}).Info("Connected to MQTT broker")
	return NewMQTTNotifier(client, topic), nil
}

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Notify publishes a and waits for the broker acknowledgement.
func (n *MQTTNotifier) Notify(ctx context.Context, a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	token := n.client.Publish(n.topic, n.qos, false, payload)
	timer := time.NewTimer(n.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}
