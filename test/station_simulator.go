package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Family is one measurement group of the station document
type Family map[string]interface{}

func main() {
	listen := flag.String("listen", ":8080", "address serving /weather.json")
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker to watch, empty disables")
	username := flag.String("username", "", "MQTT username")
	password := flag.String("password", "", "MQTT password")
	mode := flag.String("mode", "normal", "station behaviour: normal, empty, error, slow")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/weather.json", func(w http.ResponseWriter, r *http.Request) {
		serveStation(w, *mode)
	})

	server := &http.Server{Addr: *listen, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("station simulator failed: %v\n", err)
			os.Exit(1)
		}
	}()
	fmt.Printf("simulated station listening on %s (mode %s)\n", *listen, *mode)

	var client paho.Client
	if *broker != "" {
		client = watchBroker(*broker, *username, *password)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("shutting down...")
	if client != nil {
		client.Disconnect(250)
	}
	_ = server.Close()
}

func serveStation(w http.ResponseWriter, mode string) {
	switch mode {
	case "error":
		http.Error(w, "station busy", http.StatusServiceUnavailable)
		return
	case "slow":
		time.Sleep(30 * time.Second)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(document(mode)); err != nil {
		fmt.Printf("failed to encode station document: %v\n", err)
	}
}

// document builds a station reading with jittered values
func document(mode string) map[string]interface{} {
	doc := map[string]interface{}{
		"time":    time.Now().Format("2006-01-02 15:04:05"),
		"batt":    round(4.0 + rand.Float64()*0.3),
		"signal":  -60 - rand.Intn(20),
		"quality": 80 + rand.Intn(20),
	}
	if mode == "empty" {
		doc["us"] = Family{}
		return doc
	}

	temp := round(60 + rand.Float64()*20)
	doc["us"] = map[string]interface{}{
		"atmp": Family{"ic": temp, "tic": temp + 5, "bic": temp - 8, "ric": temp - 2},
		"rh":   Family{"ic": rand.Intn(60) + 30},
		"bp":   Family{"ic": round(29.8 + rand.Float64()*0.4)},
		"wnd":  Family{"ic": round(rand.Float64() * 15), "tic": round(rand.Float64() * 30), "wic": rand.Intn(360), "wict": nil},
		"rf":   Family{"rfd": round(rand.Float64() * 0.5)},
		"sr":   Family{"src": rand.Intn(900)},
		"uv":   Family{"uvc": rand.Intn(11)},
		"lw":   Family{"lwc": rand.Intn(15)},
	}
	return doc
}

func round(v float64) float64 {
	return float64(int(v*10)) / 10
}

// watchBroker prints everything the bridge publishes
func watchBroker(broker, username, password string) paho.Client {
	opts := paho.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("rainwise-watch-%d", time.Now().Unix()))
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		fmt.Printf("connection lost: %v\n", err)
	})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		fmt.Printf("failed to connect to MQTT broker: %v\n", token.Error())
		os.Exit(1)
	}
	fmt.Printf("watching MQTT broker: %s\n", broker)

	handler := func(_ paho.Client, msg paho.Message) {
		timestamp := time.Now().Format("15:04:05")
		fmt.Printf("[%s] %s (retained=%v): %s\n", timestamp, msg.Topic(), msg.Retained(), string(msg.Payload()))
	}
	for _, topic := range []string{"rainwise/#", "homeassistant/sensor/#"} {
		if token := client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
			fmt.Printf("failed to subscribe to %s: %v\n", topic, token.Error())
		}
	}
	return client
}
