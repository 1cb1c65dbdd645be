package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/monitoring"
	coremqtt "github.com/marcoioli/proyecto-programacion3-grupo12/core/mqtt"
	"github.com/marcoioli/proyecto-programacion3-grupo12/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled     bool        `json:"enabled" yaml:"enabled"`
	Broker      string      `json:"broker" yaml:"broker"`
	ClientID    string      `json:"client_id" yaml:"client_id"`
	Username    string      `json:"username" yaml:"username"`
	Password    string      `json:"password" yaml:"password"`
	TopicPrefix string      `json:"topic_prefix" yaml:"topic_prefix"`
	UseTLS      bool        `json:"use_tls" yaml:"use_tls"`
	ClientCert  string      `json:"client_cert" yaml:"client_cert"`
	ClientKey   string      `json:"client_key" yaml:"client_key"`
	CABundle    string      `json:"ca_bundle" yaml:"ca_bundle"`
	QoS         byte        `json:"qos" yaml:"qos"`
	MaxRetries  int         `json:"max_retries" yaml:"max_retries"`
	BackoffMS   int         `json:"backoff_ms" yaml:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-" yaml:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Broker == "" {
		c.Broker = "tcp://localhost:1883"
	}
	if c.ClientID == "" {
		c.ClientID = "clinic-dispatch-" + uuid.NewString()[:8]
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "clinic/ambulance"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the QoS level and TLS files.
func (c Config) Validate() error {
	if c.QoS > 2 {
		return fmt.Errorf("mqtt qos %d out of range", c.QoS)
	}
	if c.UseTLS && c.TLSConfig == nil && (c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "") {
		return fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// StatusClient publishes the ambulance status on retained topics and
// forwards return signals received from the crew.
type StatusClient struct {
	cli     pahoClient
	topics  coremqtt.Topics
	qos     byte
	retries int
	backoff time.Duration
	log     logger.Logger

	mu       sync.Mutex
	onReturn func()
}

// NewStatusClient connects to the broker. The last will marks the vehicle
// offline; on every (re)connection it is marked online again and the return
// topic is subscribed when onReturn is set.
func NewStatusClient(cfg Config, vehicleID string, onReturn func()) (*StatusClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sc := &StatusClient{
		topics:   coremqtt.Topics{Prefix: cfg.TopicPrefix, VehicleID: vehicleID},
		qos:      cfg.QoS,
		retries:  cfg.MaxRetries,
		backoff:  time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:      logger.New("mqtt_client"),
		onReturn: onReturn,
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.SetWill(sc.topics.Availability(), coremqtt.Offline, cfg.QoS, true)
	opts.OnConnect = func(c paho.Client) {
		sc.log.Infof("MQTT connected")
		if token := c.Publish(sc.topics.Availability(), sc.qos, true, coremqtt.Online); token.Wait() && token.Error() != nil {
			sc.log.Errorf("availability publish error: %v", token.Error())
		}
		if sc.onReturn == nil {
			return
		}
		if token := c.Subscribe(sc.topics.Return(), sc.qos, sc.handleReturn); token.Wait() && token.Error() != nil {
			sc.log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		sc.log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		sc.log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	sc.cli = c
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return sc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Topics returns the topic names used by the client.
func (s *StatusClient) Topics() coremqtt.Topics { return s.topics }

func (s *StatusClient) handleReturn(_ paho.Client, msg paho.Message) {
	s.mu.Lock()
	fn := s.onReturn
	s.mu.Unlock()
	if fn == nil {
		return
	}
	s.log.Infof("return signal received on %s", msg.Topic())
	fn()
}

// PublishStatus sends m on the retained state topic, retrying with
// exponential backoff. The final failure is reported to the monitor.
func (s *StatusClient) PublishStatus(m coremqtt.StatusMessage) error {
	if s.cli == nil || !s.cli.IsConnected() {
		return coremqtt.ErrNotConnected
	}
	if m.MessageID == "" {
		m.MessageID = uuid.NewString()
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	topic := s.topics.State()
	var publishErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		token := s.cli.Publish(topic, s.qos, true, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			s.log.Debugf("published %s state %s", m.VehicleID, m.State)
			return nil
		}
		s.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < s.retries {
			time.Sleep(s.backoff * time.Duration(1<<attempt))
		}
	}
	monitoring.CaptureException(publishErr, map[string]string{
		"module":     "mqtt",
		"vehicle_id": m.VehicleID,
	})
	return publishErr
}

// Disconnect marks the vehicle offline and closes the connection.
func (s *StatusClient) Disconnect() {
	if s.cli == nil || !s.cli.IsConnected() {
		return
	}
	if token := s.cli.Publish(s.topics.Availability(), s.qos, true, coremqtt.Offline); token.Wait() && token.Error() != nil {
		s.log.Warnf("offline publish error: %v", token.Error())
	}
	s.cli.Disconnect(250)
}
