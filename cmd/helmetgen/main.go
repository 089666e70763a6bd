package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minewatch/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

var (
	helmetCount = flag.Int("helmets", 3, "Number of mock helmets to simulate")
	interval    = flag.Duration("interval", 5*time.Second, "Telemetry interval per helmet")
	anomaly     = flag.Float64("anomaly", 0.1, "Probability of anomalous readings (0.0-1.0)")
	mqttBroker  = flag.String("broker", "localhost:1883", "MQTT broker address (host:port)")
	mqttUser    = flag.String("user", "minewatch", "MQTT username")
	mqttPass    = flag.String("pass", "minewatch2024", "MQTT password")
	topicPrefix = flag.String("topic-prefix", "helmet", "Topic prefix; data goes to <prefix>/<id>/data")
	baseLat     = flag.Float64("lat", 40.7128, "Base latitude of the simulated site")
	baseLng     = flag.Float64("lng", -74.0060, "Base longitude of the simulated site")
)

// mockHelmet generates plausible telemetry for one simulated helmet
type mockHelmet struct {
	helmetID      string
	anomalyProb   float64
	battery       float64
	lat, lng      float64
	baseHeartRate float64
	baseTemp      float64
}

func newMockHelmet(index int, anomalyProb float64) *mockHelmet {
	return &mockHelmet{
		helmetID:      fmt.Sprintf("HELMET-%03d", index+1),
		anomalyProb:   anomalyProb,
		battery:       70 + rand.Float64()*30,
		lat:           *baseLat + (rand.Float64()-0.5)*0.01,
		lng:           *baseLng + (rand.Float64()-0.5)*0.01,
		baseHeartRate: 70 + rand.Float64()*15,
		baseTemp:      27.0,
	}
}

// generate produces one telemetry payload, occasionally out of threshold
func (m *mockHelmet) generate() *models.TelemetryPayload {
	isAnomaly := rand.Float64() < m.anomalyProb

	temperature := m.baseTemp + rand.Float64()*4.0 - 2.0
	gasLevel := 150 + rand.Float64()*200
	heartRate := m.baseHeartRate + rand.Float64()*20 - 10
	oxygen := 20.9 - rand.Float64()*0.5

	if isAnomaly {
		switch rand.Intn(4) {
		case 0:
			gasLevel = 550 + rand.Float64()*400
		case 1:
			if rand.Float64() < 0.5 {
				heartRate = 125 + rand.Float64()*30
			} else {
				heartRate = 35 + rand.Float64()*10
			}
		case 2:
			temperature = 36.0 + rand.Float64()*5.0
		case 3:
			oxygen = 17.0 + rand.Float64()*2.0
		}
	}

	// Battery drains slowly; jump low sometimes to exercise the battery rule
	m.battery -= rand.Float64() * 0.1
	if m.battery < 5 {
		m.battery = 70 + rand.Float64()*30
	}
	battery := m.battery
	if isAnomaly && rand.Float64() < 0.2 {
		battery = rand.Float64() * 18
	}

	// Random walk around the site
	m.lat += (rand.Float64() - 0.5) * 0.0005
	m.lng += (rand.Float64() - 0.5) * 0.0005

	return &models.TelemetryPayload{
		HelmetID: m.helmetID,
		Sensors: models.SensorSnapshot{
			Temperature: math.Round(temperature*10) / 10,
			Humidity:    math.Round((55+rand.Float64()*20)*10) / 10,
			GasLevel:    math.Round(gasLevel),
			HeartRate:   math.Round(heartRate),
			Oxygen:      math.Round(oxygen*10) / 10,
			Impact:      isAnomaly && rand.Float64() < 0.05,
		},
		Battery: models.Battery{
			Percentage: math.Round(battery),
		},
		GPS: &models.GeoPoint{
			Lat: m.lat,
			Lng: m.lng,
		},
		Timestamp: time.Now().UnixMilli(),
	}
}

func main() {
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Mock helmet generator started",
		zap.Int("helmets", *helmetCount),
		zap.Duration("interval", *interval),
		zap.Float64("anomaly_probability", *anomaly),
		zap.String("mqtt_broker", *mqttBroker),
		zap.String("topic_prefix", *topicPrefix),
	)

	// Initialize MQTT client (simulating the helmet fleet's uplink)
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", *mqttBroker))
	opts.SetClientID("minewatch-helmetgen")
	opts.SetUsername(*mqttUser)
	opts.SetPassword(*mqttPass)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", *mqttBroker))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	}

	mqttClient := mqtt.NewClient(opts)
	if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
		logger.Fatal("Failed to connect to MQTT broker", zap.Error(token.Error()))
	}
	defer mqttClient.Disconnect(250)

	helmets := make([]*mockHelmet, *helmetCount)
	for i := range helmets {
		helmets[i] = newMockHelmet(i, *anomaly)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping generator")
		cancel()
	}()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	messageCount := 0
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			elapsed := time.Since(startTime)
			logger.Info("Generator stopped",
				zap.Int("total_messages", messageCount),
				zap.Duration("uptime", elapsed))
			mqttClient.Disconnect(250)
			return

		case <-ticker.C:
			for _, helmet := range helmets {
				payload := helmet.generate()

				jsonData, err := json.Marshal(payload)
				if err != nil {
					logger.Error("Failed to marshal telemetry", zap.Error(err))
					continue
				}

				topic := fmt.Sprintf("%s/%s/data", *topicPrefix, payload.HelmetID)
				token := mqttClient.Publish(topic, 0, false, jsonData)
				if token.Wait() && token.Error() != nil {
					logger.Error("Failed to publish telemetry",
						zap.String("helmet_id", payload.HelmetID),
						zap.Error(token.Error()))
					continue
				}

				messageCount++
				logger.Debug("Published telemetry",
					zap.String("helmet_id", payload.HelmetID),
					zap.String("topic", topic),
					zap.Float64("gas_level", payload.Sensors.GasLevel),
					zap.Float64("heart_rate", payload.Sensors.HeartRate),
					zap.Float64("battery", payload.Battery.Percentage))
			}

			if messageCount > 0 && messageCount%100 < *helmetCount {
				logger.Info("Telemetry published",
					zap.Int("count", messageCount),
					zap.Duration("uptime", time.Since(startTime)))
			}
		}
	}
}
