package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"PlantDash/internal/domain/models"
	pkgmqtt "PlantDash/pkg/mqtt"
)

type mqttClient interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
	Disconnect()
}

// MQTTPublisher publishes summaries to <topic>/dashboard, retained so late subscribers see the latest one.
type MQTTPublisher struct {
	client mqttClient
	topic  string
	qos    byte
}

// NewMQTTPublisher creates an MQTT publisher under the base topic.
func NewMQTTPublisher(client *pkgmqtt.Client, baseTopic string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: baseTopic + "/dashboard", qos: qos}
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

func (p *MQTTPublisher) Publish(ctx context.Context, s *models.BundleSummary) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return p.client.Publish(ctx, p.topic, p.qos, true, b)
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect()
	return nil
}
