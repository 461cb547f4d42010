// Package mqtt publishes lifecycle events and answers request/response calls
// over an MQTT broker. Every topic lives under a configurable prefix:
//
//	<prefix>/<topic>                       events
//	<prefix>/request/<topic>               requests
//	<prefix>/response/<topic>/<correlation> responses
package mqtt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string      `json:"correlationId"`
	Data          interface{} `json:"data"`
	Error         string      `json:"error,omitempty"`
}

// Options holds the broker connection settings
type Options struct {
	Host        string
	Port        string
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client           mqtt.Client
	prefix           string
	responseHandlers map[string]func(MqttResponse)
	mu               sync.RWMutex
}

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(opts Options) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(opts)
	})
	return communicator
}

// Get returns the global MQTT communicator, nil when MQTT is disabled
func Get() *MqttCommunicator {
	return communicator
}

// NewMqttCommunicator connects to the broker. A failed first connection is
// logged and retried in the background by the client.
func NewMqttCommunicator(o Options) *MqttCommunicator {
	uniqueID := fmt.Sprintf("%s_%s", o.ClientID, uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", o.Host, o.Port)).
		SetClientID(uniqueID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", o.ClientID), "MQTT")
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	mc := NewWithClient(mqtt.NewClient(opts), o.TopicPrefix)

	token := mc.client.Connect()
	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return mc
}

// NewWithClient wraps an existing paho client
func NewWithClient(client mqtt.Client, prefix string) *MqttCommunicator {
	return &MqttCommunicator{
		client:           client,
		prefix:           strings.Trim(prefix, "/"),
		responseHandlers: make(map[string]func(MqttResponse)),
	}
}

// Topic returns topic under the communicator's prefix
func (mc *MqttCommunicator) Topic(parts ...string) string {
	if mc.prefix == "" {
		return strings.Join(parts, "/")
	}
	return mc.prefix + "/" + strings.Join(parts, "/")
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.client != nil && mc.client.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc.client != nil && mc.client.IsConnected()
}

// Publish sends payload as JSON to <prefix>/<topic>
func (mc *MqttCommunicator) Publish(topic string, payload interface{}) error {
	return mc.publishRaw(mc.Topic(topic), payload)
}

func (mc *MqttCommunicator) publishRaw(topic string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, jsonData)
	token.Wait()
	return token.Error()
}

// Request sends a request and waits for the matching response
func (mc *MqttCommunicator) Request(topic string, payload interface{}, timeout time.Duration) (interface{}, error) {
	correlationID := uuid.New().String()
	requestTopic := mc.Topic("request", topic)
	responseTopic := mc.Topic("response", topic, correlationID)

	responseChan := make(chan MqttResponse, 1)
	errChan := make(chan error, 1)

	mc.mu.Lock()
	mc.responseHandlers[correlationID] = func(response MqttResponse) {
		select {
		case responseChan <- response:
		default:
		}
	}
	mc.mu.Unlock()

	defer func() {
		mc.mu.Lock()
		delete(mc.responseHandlers, correlationID)
		mc.mu.Unlock()
		mc.client.Unsubscribe(responseTopic)
	}()

	token := mc.client.Subscribe(responseTopic, 0, func(c mqtt.Client, msg mqtt.Message) {
		var response MqttResponse
		if err := json.Unmarshal(msg.Payload(), &response); err != nil {
			select {
			case errChan <- err:
			default:
			}
			return
		}

		mc.mu.RLock()
		handler, exists := mc.responseHandlers[response.CorrelationID]
		mc.mu.RUnlock()

		if exists {
			handler(response)
		}
	})
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	request := MqttRequest{
		CorrelationID: correlationID,
		Payload:       payload,
	}
	if err := mc.publishRaw(requestTopic, request); err != nil {
		return nil, err
	}

	select {
	case response := <-responseChan:
		if response.Error != "" {
			return nil, fmt.Errorf("%s", response.Error)
		}
		return response.Data, nil
	case err := <-errChan:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("la petición a '%s' ha expirado (timeout)", topic)
	}
}

// RequestHandler answers a request. The payload always carries "_topic".
type RequestHandler func(payload map[string]interface{}) (interface{}, error)

// On answers requests sent to <prefix>/request/<requestTopic>
func (mc *MqttCommunicator) On(requestTopic string, callback RequestHandler) error {
	topic := mc.Topic("request", requestTopic)
	requestPrefix := mc.Topic("request") + "/"

	token := mc.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		actualTopic := strings.TrimPrefix(msg.Topic(), requestPrefix)
		response := mc.answer(actualTopic, msg.Payload(), callback)
		if response == nil {
			return
		}

		responseTopic := mc.Topic("response", actualTopic, response.CorrelationID)
		if err := mc.publishRaw(responseTopic, response); err != nil {
			logger.Error(fmt.Sprintf("Error respondiendo a %s: %v", actualTopic, err), "MQTT")
		}
	})
	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error suscribiendo a %s: %v", topic, token.Error()), "MQTT")
		return token.Error()
	}
	return nil
}

// answer decodes a request and runs callback; nil means the request was unreadable
func (mc *MqttCommunicator) answer(topic string, raw []byte, callback RequestHandler) *MqttResponse {
	var request MqttRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		logger.Error(fmt.Sprintf("Petición MQTT inválida en %s: %v", topic, err), "MQTT")
		return nil
	}

	payloadMap := make(map[string]interface{})
	if pm, ok := request.Payload.(map[string]interface{}); ok {
		payloadMap = pm
	}
	payloadMap["_topic"] = topic

	data, err := callback(payloadMap)
	if err != nil {
		return &MqttResponse{CorrelationID: request.CorrelationID, Error: err.Error()}
	}
	return &MqttResponse{CorrelationID: request.CorrelationID, Data: data}
}

// Subscribe delivers messages published on <prefix>/<topic>. Wildcards are
// passed through to the broker.
func (mc *MqttCommunicator) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := mc.client.Subscribe(mc.Topic(topic), 0, func(c mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

// Unsubscribe unsubscribes from <prefix>/<topic>
func (mc *MqttCommunicator) Unsubscribe(topic string) error {
	token := mc.client.Unsubscribe(mc.Topic(topic))
	token.Wait()
	return token.Error()
}
