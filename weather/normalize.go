package weather

// Normalizer flattens a RawReading into Readings. The zero value extracts
// the current-value fields only.
type Normalizer struct {
	// Sets lists the field sets to extract. Empty means SetCurrent.
	Sets []FieldSet
}

// Normalize flattens raw using the current-value fields only.
func Normalize(raw RawReading, units UnitSystem) (Readings, bool) {
	return Normalizer{}.Normalize(raw, units)
}

// Normalize flattens raw into a sensor-id → value map. It reports false when
// raw is empty or carries no measurement object for units. Absent families,
// absent keys and null values produce no entry.
func (n Normalizer) Normalize(raw RawReading, units UnitSystem) (Readings, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	measurements, ok := raw[string(units)].(map[string]interface{})
	if !ok {
		return nil, false
	}

	enabled := n.enabled()
	readings := make(Readings)

	for _, f := range rootFields {
		if v, ok := raw[f.DeviceKey]; ok {
			readings[f.SensorID] = v
		}
	}

	for _, fam := range standardFamilies {
		data := family(measurements, fam.DeviceKey)
		if data == nil {
			continue
		}
		for _, k := range suffixTable {
			if !enabled[k.Set] {
				continue
			}
			if v, ok := data[k.DeviceKey]; ok {
				readings[fam.Prefix+k.Suffix] = v
			}
		}
	}

	for _, fam := range specialFamilies {
		data := family(measurements, fam.DeviceKey)
		if data == nil {
			continue
		}
		for _, k := range fam.Keys {
			if !enabled[k.Set] {
				continue
			}
			readings[k.SensorID] = data[k.DeviceKey]
		}
	}

	return readings.Compact(), true
}

func (n Normalizer) enabled() map[FieldSet]bool {
	if len(n.Sets) == 0 {
		return map[FieldSet]bool{SetCurrent: true}
	}
	m := make(map[FieldSet]bool, len(n.Sets))
	for _, s := range n.Sets {
		m[s] = true
	}
	return m
}

// family returns the named sub-object, or nil when it is absent, empty or
// not an object.
func family(measurements map[string]interface{}, key string) map[string]interface{} {
	data, ok := measurements[key].(map[string]interface{})
	if !ok || len(data) == 0 {
		return nil
	}
	return data
}
