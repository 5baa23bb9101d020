package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type inner struct {
	Port  int
	Ratio float64
	QoS   uint8
	Units string
	Sets  []string
}

type outer struct {
	Name  string
	Inner inner
}

func TestRangeValidator(t *testing.T) {
	data := &outer{Inner: inner{Port: 1883, Ratio: 0.5, QoS: 1}}

	assert.NoError(t, (&RangeValidator{Field: "Inner.Port", Min: 1, Max: 65535}).Validate(data))
	assert.NoError(t, (&RangeValidator{Field: "Inner.Ratio", Min: 0, Max: 1}).Validate(*data))
	assert.NoError(t, (&RangeValidator{Field: "Inner.QoS", Min: 0, Max: 2}).Validate(data))
	assert.Error(t, (&RangeValidator{Field: "Inner.Port", Min: 1, Max: 100}).Validate(data))
	assert.Error(t, (&RangeValidator{Field: "Inner.Missing", Min: 0, Max: 1}).Validate(data))
	assert.Error(t, (&RangeValidator{Field: "Name", Min: 0, Max: 1}).Validate(data))
	assert.Error(t, (&RangeValidator{Field: "Port", Min: 0, Max: 1}).Validate(42))
}

func TestOneOfValidator(t *testing.T) {
	data := outer{Inner: inner{Units: "us", Sets: []string{"current", "average"}}}
	allowed := []string{"us", "metric"}

	assert.NoError(t, (&OneOfValidator{Field: "Inner.Units", Allowed: allowed}).Validate(data))
	assert.NoError(t, (&OneOfValidator{Field: "Inner.Sets", Allowed: []string{"current", "average"}}).Validate(data))
	assert.Error(t, (&OneOfValidator{Field: "Inner.Sets", Allowed: []string{"current"}}).Validate(data))

	data.Inner.Units = "imperial"
	assert.Error(t, (&OneOfValidator{Field: "Inner.Units", Allowed: allowed}).Validate(data))
	assert.Error(t, (&OneOfValidator{Field: "Inner.Port", Allowed: allowed}).Validate(data))
}

func TestValidateStopsAtFirstError(t *testing.T) {
	data := outer{Name: " ", Inner: inner{Port: 0}}

	err := Validate(data,
		&RangeValidator{Field: "Inner.Port", Min: 1, Max: 65535},
		&NotEmptyValidator{Field: "Name"},
	)
	assert.EqualError(t, err, "field Inner.Port value 0 is not within [1, 65535]")

	data.Inner.Port = 1
	err = Validate(data, &RangeValidator{Field: "Inner.Port", Min: 1, Max: 65535}, &NotEmptyValidator{Field: "Name"})
	assert.EqualError(t, err, "field Name cannot be empty")
}
