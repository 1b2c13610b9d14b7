package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := fromViper(newTestViper())
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, []string{"B1", "B2", "B3", "B4", "B5"}, cfg.Dormitory.Buildings)
	assert.Equal(t, []string{"B2", "B3"}, cfg.Dormitory.MaleBuildings)
	assert.Equal(t, []string{"B1", "B4", "B5"}, cfg.Dormitory.FemaleBuildings)
	assert.Equal(t, 5, cfg.Dormitory.Floors)
	assert.Equal(t, 20, cfg.Dormitory.RoomsPerFloor)
	assert.Equal(t, 4, cfg.Dormitory.DefaultCapacity)
	assert.Equal(t, time.Minute, cfg.Dashboard.CacheTTL)
}

func TestUnknownDriverRejected(t *testing.T) {
	v := newTestViper()
	v.Set("STORE_DRIVER", "mongo")
	_, err := fromViper(v)
	require.Error(t, err)
}

func TestEligibleBuildingMustExist(t *testing.T) {
	v := newTestViper()
	v.Set("DORM_MALE_BUILDINGS", "B2,B9")
	_, err := fromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "B9")
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , ,b "))
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseDuration("bogus", 3*time.Second))
	assert.Equal(t, 2*time.Minute, parseDuration("2m", time.Second))
}
