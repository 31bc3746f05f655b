// Package influxdb mirrors device value history to InfluxDB v2.
//
// SQLite remains the source of truth for history; the mirror exists for
// dashboards and long-range queries. Writes go through the non-blocking
// batched write API, so a slow or absent InfluxDB never stalls a device
// update. The mirror is optional and disabled by default.
package influxdb
