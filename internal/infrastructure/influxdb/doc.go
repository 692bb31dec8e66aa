// Package influxdb mirrors stored readings into InfluxDB v2.
//
// Each reading becomes one point in the "readings" measurement, tagged by
// device, campus and location, with integer temperature and (when reported)
// humidity fields. Writes are batched and non-blocking; the ingestion path
// never waits on InfluxDB.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // mirror switched off
//	}
//	client.WriteReading(influxdb.ReadingPoint{Device: "room_12", Temperature: 72})
package influxdb
