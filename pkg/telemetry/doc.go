// Package telemetry wires zerolog's chained-event style, as used by
// smilemakc-mbflow's factory.go and internal/db/base.go, into the engine's
// phase transitions, commits, and provisioning decisions.
package telemetry
