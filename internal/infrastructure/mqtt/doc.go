// Package mqtt provides the MQTT client used by tempwatch.
//
// Sensors that cannot speak HTTP publish readings to tempwatch/write/{device};
// the ingest package subscribes with Topics{}.AllWrites() and runs each
// message through the same write path as POST /api/write. Stored readings are
// mirrored to tempwatch/event/update/{device} for downstream consumers.
//
// The client wraps eclipse/paho.mqtt.golang and adds:
//   - Auto-reconnect with subscription restoration
//   - Retained online/offline status with a Last Will
//   - Panic recovery and logging around message handlers
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllWrites(), 1, handler)
//	err = client.PublishJSON(mqtt.Topics{}.Update("room_12"), event)
package mqtt
