// Package ingest bridges MQTT device value reports into the device service.
//
// Gateways publish JSON payloads to brightmind/device/{id}/value; the bridge
// feeds them through the same update path the REST API uses, so history and
// live notifications behave identically regardless of where a value came
// from.
package ingest
