package weather

import "fmt"

// FieldSet groups device keys by the statistic they report. Only
// SetCurrent is extracted unless more sets are enabled on the Normalizer.
type FieldSet string

const (
	SetCurrent     FieldSet = "current"
	SetAverage     FieldSet = "average"
	SetTodayHigh   FieldSet = "today_high"
	SetFiveMinHigh FieldSet = "5min_high"
	SetTodayLow    FieldSet = "today_low"
	SetFiveMinLow  FieldSet = "5min_low"
	SetToday       FieldSet = "today"
	SetFiveMin     FieldSet = "5min"
)

// AllFieldSets lists every set known to the field tables.
var AllFieldSets = []FieldSet{
	SetCurrent, SetAverage, SetTodayHigh, SetFiveMinHigh,
	SetTodayLow, SetFiveMinLow, SetToday, SetFiveMin,
}

// ParseFieldSet validates a field set name.
func ParseFieldSet(s string) (FieldSet, error) {
	for _, fs := range AllFieldSets {
		if string(fs) == s {
			return fs, nil
		}
	}
	return "", fmt.Errorf("unknown field set: %q", s)
}

// Root-level fields copied verbatim to fixed sensor ids.
var rootFields = []struct {
	DeviceKey string
	SensorID  string
}{
	{"time", "timestamp"},
	{"batt", "battery_volts"},
	{"signal", "signal_dbm"},
	{"quality", "signal_quality"},
}

// suffixKey maps a device key inside a standard family to an output suffix.
type suffixKey struct {
	Set       FieldSet
	DeviceKey string
	Suffix    string
}

// standardFamily is a family whose keys are expanded with the shared suffix table.
type standardFamily struct {
	DeviceKey string
	Prefix    string
}

var standardFamilies = []standardFamily{
	{"atmp", "temp_air"},
	{"rh", "humidity"},
	{"bp", "pressure"},
	{"tmp1", "temp_1"},
	{"tmp2", "temp_2"},
	{"sm", "soil_moisture"},
	{"itmp", "temp_inside"},
}

// The station abbreviates the same statistic differently per family
// (ic, tic, ric, ...). Every standard family is matched against the full
// table; when a family carries more than one key of a set, the later
// entry wins.
var suffixTable = expandSuffixes([]suffixBase{
	{SetCurrent, "ic", "_current"},
	{SetAverage, "ia", "_average"},
	{SetTodayHigh, "dh", "_today_high"},
	{SetFiveMinHigh, "ih", "_5min_high"},
	{SetTodayLow, "dl", "_today_low"},
	{SetFiveMinLow, "il", "_5min_low"},
})

var keyPrefixes = []string{"", "t", "r", "b", "t1", "t2", "s", "it"}

type suffixBase struct {
	Set    FieldSet
	Base   string
	Suffix string
}

func expandSuffixes(bases []suffixBase) []suffixKey {
	out := make([]suffixKey, 0, len(bases)*len(keyPrefixes))
	for _, b := range bases {
		for _, p := range keyPrefixes {
			out = append(out, suffixKey{Set: b.Set, DeviceKey: p + b.Base, Suffix: b.Suffix})
		}
	}
	return out
}

// fixedKey maps a device key inside a special family straight to a sensor id.
type fixedKey struct {
	Set       FieldSet
	DeviceKey string
	SensorID  string
}

// specialFamily uses one-off key names and is not covered by suffixTable.
type specialFamily struct {
	DeviceKey string
	Keys      []fixedKey
}

var specialFamilies = []specialFamily{
	{"wnd", []fixedKey{
		{SetCurrent, "wic", "wind_speed_current"},
		{SetCurrent, "wict", "wind_direction_current"},
		{SetAverage, "wia", "wind_speed_average"},
		{SetTodayHigh, "wdh", "wind_speed_today_high"},
		{SetTodayHigh, "wdht", "wind_direction_today_high"},
		{SetFiveMinHigh, "wih", "wind_speed_5min_high"},
		{SetFiveMinHigh, "wiht", "wind_direction_5min_high"},
	}},
	{"rf", []fixedKey{
		// rfd is the day's total, reported as the current rain reading.
		{SetCurrent, "rfd", "rain_today"},
		{SetFiveMin, "rfm", "rain_5min"},
	}},
	{"sr", []fixedKey{
		{SetCurrent, "src", "solar_radiation_current"},
		{SetToday, "srd", "solar_radiation_today"},
		{SetFiveMin, "srm", "solar_radiation_5min"},
	}},
	{"sr2", []fixedKey{
		{SetCurrent, "sr2c", "solar_radiation_2_current"},
		{SetToday, "sr2d", "solar_radiation_2_today"},
		{SetFiveMin, "sr2m", "solar_radiation_2_5min"},
	}},
	{"uv", []fixedKey{
		{SetCurrent, "uvc", "uv_index_current"},
		{SetToday, "uvd", "uv_index_today"},
		{SetFiveMin, "uvm", "uv_index_5min"},
	}},
	{"lw", []fixedKey{
		{SetCurrent, "lwc", "leaf_wetness_current"},
		{SetToday, "lwd", "leaf_wetness_duration_today"},
		{SetFiveMin, "lwm", "leaf_wetness_duration_5min"},
	}},
}
