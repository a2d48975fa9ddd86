package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateQuery(t *testing.T) {
	assert.NoError(t, ValidateQuery("fight club"))
	assert.Error(t, ValidateQuery(""))
	assert.Error(t, ValidateQuery("   "))
	assert.Error(t, ValidateQuery(strings.Repeat("a", 501)))
}

func TestValidatePeriod(t *testing.T) {
	assert.NoError(t, ValidatePeriod("day"))
	assert.NoError(t, ValidatePeriod("week"))
	assert.Error(t, ValidatePeriod("month"))
	assert.Error(t, ValidatePeriod(""))
}

func TestValidateSeasonNumber(t *testing.T) {
	assert.NoError(t, ValidateSeasonNumber(0))
	assert.NoError(t, ValidateSeasonNumber(12))
	assert.Error(t, ValidateSeasonNumber(-1))
}
