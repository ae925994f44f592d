// Package meter reads the live plant values the optimizer seeds its
// inputs from (PV output, battery state of charge, grid exchange) over
// Modbus TCP from a Sigenergy-style plant controller.
package meter

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// PlantAddress is the Modbus slave id of the plant controller.
const PlantAddress = 247

// plantInfoBase is the start of the plant running-information input
// register block.
const plantInfoBase = 30000

// Snapshot is the subset of the plant running information the
// optimizer cares about.
type Snapshot struct {
	GridSensorConnected bool
	GridActivePower     float64 // kW, positive = importing
	BatterySOC          float64 // fraction (0-1)
	PlantActivePower    float64 // kW
	PhotovoltaicPower   float64 // kW
	BatteryPower        float64 // kW, <0 discharging, >0 charging
	BatteryCapacity     float64 // kWh, zero when the extended block is absent
}

// Client reads plant registers over Modbus TCP.
type Client struct {
	client  modbus.Client
	handler *modbus.TCPClientHandler
}

// Dial connects to the plant controller at address (IP:PORT).
func Dial(address string) (*Client, error) {
	handler := modbus.NewTCPClientHandler(address)
	handler.SlaveId = PlantAddress
	handler.Timeout = 1 * time.Second
	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Client{client: modbus.NewClient(handler), handler: handler}, nil
}

// Close closes the Modbus connection.
func (c *Client) Close() error { return c.handler.Close() }

// ReadSnapshot reads the plant running-information block and decodes
// the dispatch-relevant values.
func (c *Client) ReadSnapshot() (*Snapshot, error) {
	data, err := c.client.ReadInputRegisters(plantInfoBase, 52)
	if err != nil {
		return nil, fmt.Errorf("failed to read plant running info: %w", err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}

	// The extended ESS block is optional on older firmware.
	if ext, err := c.client.ReadInputRegisters(30083, 5); err == nil && len(ext) >= 4 {
		snap.BatteryCapacity = float64(binary.BigEndian.Uint32(ext[0:4])) / 100.0
	}
	return snap, nil
}

// decodeSnapshot unpacks the 52-register running-information block.
// Registers are big-endian; powers are milli-kW on the wire and SoC is
// tenths of a percent.
func decodeSnapshot(data []byte) (*Snapshot, error) {
	if len(data) < 104 {
		return nil, fmt.Errorf("short register block: %d bytes, want 104", len(data))
	}
	return &Snapshot{
		GridSensorConnected: binary.BigEndian.Uint16(data[8:10]) == 1,
		GridActivePower:     float64(int32(binary.BigEndian.Uint32(data[10:14]))) / 1000.0,
		BatterySOC:          float64(binary.BigEndian.Uint16(data[28:30])) / 1000.0,
		PlantActivePower:    float64(int32(binary.BigEndian.Uint32(data[62:66]))) / 1000.0,
		PhotovoltaicPower:   float64(int32(binary.BigEndian.Uint32(data[70:74]))) / 1000.0,
		BatteryPower:        float64(int32(binary.BigEndian.Uint32(data[74:78]))) / 1000.0,
	}, nil
}
