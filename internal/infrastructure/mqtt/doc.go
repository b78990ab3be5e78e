// Package mqtt provides MQTT client connectivity for mqtt: measurement channels.
//
// This package manages:
//   - Connection to an MQTT broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Retained online/offline status with Last Will and Testament (LWT)
//   - Connection health monitoring
//
// # Topics
//
// Protocol text is published to <prefix>/measurements/<stream>; the sender's
// status lives at <prefix>/status/<client_id>. The prefix defaults to "oml".
//
// # Security Considerations
//
//   - TLS should be enabled outside local development (cfg.Broker.TLS=true)
//   - Credentials can be supplied through OML_MQTT_USERNAME/OML_MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	err = client.PublishDefault(client.Topics().Measurements("cpu"), batch)
package mqtt
