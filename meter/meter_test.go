package meter

import (
	"encoding/binary"
	"math"
	"testing"
)

// buildBlock assembles a 52-register running-information block with the
// given values planted at their wire offsets.
func buildBlock(gridStatus uint16, gridPowerMilli int32, socTenths uint16, plantMilli, pvMilli, essMilli int32) []byte {
	data := make([]byte, 104)
	binary.BigEndian.PutUint16(data[8:10], gridStatus)
	binary.BigEndian.PutUint32(data[10:14], uint32(gridPowerMilli))
	binary.BigEndian.PutUint16(data[28:30], socTenths)
	binary.BigEndian.PutUint32(data[62:66], uint32(plantMilli))
	binary.BigEndian.PutUint32(data[70:74], uint32(pvMilli))
	binary.BigEndian.PutUint32(data[74:78], uint32(essMilli))
	return data
}

func TestDecodeSnapshot(t *testing.T) {
	data := buildBlock(1, 2500, 853, -1200, 4300, -3100)
	snap, err := decodeSnapshot(data)
	if err != nil {
		t.Fatalf("decodeSnapshot() error: %v", err)
	}
	if !snap.GridSensorConnected {
		t.Error("GridSensorConnected = false, want true")
	}
	if math.Abs(snap.GridActivePower-2.5) > 1e-9 {
		t.Errorf("GridActivePower = %g, want 2.5", snap.GridActivePower)
	}
	if math.Abs(snap.BatterySOC-0.853) > 1e-9 {
		t.Errorf("BatterySOC = %g, want 0.853", snap.BatterySOC)
	}
	if math.Abs(snap.PlantActivePower-(-1.2)) > 1e-9 {
		t.Errorf("PlantActivePower = %g, want -1.2", snap.PlantActivePower)
	}
	if math.Abs(snap.PhotovoltaicPower-4.3) > 1e-9 {
		t.Errorf("PhotovoltaicPower = %g, want 4.3", snap.PhotovoltaicPower)
	}
	if math.Abs(snap.BatteryPower-(-3.1)) > 1e-9 {
		t.Errorf("BatteryPower = %g, want -3.1", snap.BatteryPower)
	}
}

func TestDecodeSnapshotShortBlock(t *testing.T) {
	if _, err := decodeSnapshot(make([]byte, 50)); err == nil {
		t.Fatal("decodeSnapshot() with short block succeeded, want error")
	}
}
