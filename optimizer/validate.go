package optimizer

import "fmt"

// arr pairs a serialized field name with its array for shape checks.
type arr struct {
	field string
	data  []float64
}

func checkLen(asset string, idx, horizon int, arrays ...arr) error {
	for _, a := range arrays {
		if len(a.data) != horizon {
			return &ShapeError{Asset: asset, Index: idx, Field: a.field,
				Want: horizon, Got: len(a.data)}
		}
	}
	return nil
}

func checkNonNegative(asset string, idx int, field string, data []float64) error {
	for k, v := range data {
		if v < 0 {
			return &InputError{Asset: asset, Index: idx, Field: field,
				Reason: fmt.Sprintf("entry %d is %g, must be non-negative", k, v)}
		}
	}
	return nil
}

func checkBinary(asset string, idx int, field string, data []float64) error {
	for k, v := range data {
		if v != 0 && v != 1 {
			return &InputError{Asset: asset, Index: idx, Field: field,
				Reason: fmt.Sprintf("entry %d is %g, must be 0 or 1", k, v)}
		}
	}
	return nil
}

func checkUnitRange(asset string, idx int, field string, data []float64) error {
	for k, v := range data {
		if v < 0 || v > 1 {
			return &InputError{Asset: asset, Index: idx, Field: field,
				Reason: fmt.Sprintf("entry %d is %g, must be in [0,1]", k, v)}
		}
	}
	return nil
}
