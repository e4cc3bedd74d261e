// Package mqtt connects the UPnP service to the Gray Logic MQTT bus.
//
// The service publishes:
//   - a retained snapshot per device on {prefix}/upnp/device/{udn}
//   - discovery events on {prefix}/upnp/event/{name}
//   - a retained scan summary on {prefix}/upnp/scan
//   - a retained online/offline status on {prefix}/upnp/status, with a
//     Last Will so subscribers notice a crash
//
// and listens on {prefix}/upnp/command/+ for requests such as an
// immediate scan.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().Device(udn), record, true)
package mqtt
