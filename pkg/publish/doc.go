// Package publish forwards decoded scale readings to a message broker.
//
// Readings are serialized as a flat JSON object keyed by field name and sent
// to NATS or MQTT. The broker is picked from the URL scheme:
//
//	nats://host:4222, tls://host:4222      NATS
//	tcp://host:1883, mqtt://host:1883      MQTT
//	ssl://, ws://, wss://                  MQTT
//	host:1883                              MQTT over tcp
//
// # Usage
//
//	pub, err := publish.Open(ctx, "nats://localhost:4222", publish.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//
//	if err := pub.Publish(ctx, "scale-1", rec); err != nil {
//	    logger.Error("error sending message", log.Err(err))
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package publish
