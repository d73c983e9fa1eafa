package routetypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareMetricVectorsHigherPriorityWins(t *testing.T) {
	a := MetricVector{Metrics: []MetricEntity{
		CreateMetricEntity(1, 10, CompareTypeWinIfPresent, false, []int64{2}),
		CreateMetricEntity(2, 5, CompareTypeWinIfPresent, false, []int64{1}),
	}}
	b := MetricVector{Metrics: []MetricEntity{
		CreateMetricEntity(1, 10, CompareTypeWinIfPresent, false, []int64{1}),
		CreateMetricEntity(2, 5, CompareTypeWinIfPresent, false, []int64{100}),
	}}

	assert.Equal(t, CompareWinner, CompareMetricVectors(a, b))
	assert.Equal(t, CompareLooser, CompareMetricVectors(b, a))
}

func TestCompareMetricVectorsTieBreakerEntity(t *testing.T) {
	a := MetricVector{Metrics: []MetricEntity{
		CreateMetricEntity(1, 10, CompareTypeWinIfPresent, false, []int64{5}),
		CreateMetricEntity(2, 1, CompareTypeWinIfPresent, true, []int64{2}),
	}}
	b := MetricVector{Metrics: []MetricEntity{
		CreateMetricEntity(1, 10, CompareTypeWinIfPresent, false, []int64{5}),
		CreateMetricEntity(2, 1, CompareTypeWinIfPresent, true, []int64{1}),
	}}

	assert.Equal(t, CompareTieWinner, CompareMetricVectors(a, b))
	assert.Equal(t, CompareTieLooser, CompareMetricVectors(b, a))
}

func TestCompareMetricVectorsIdenticalIsTie(t *testing.T) {
	a := MetricVector{Metrics: []MetricEntity{
		CreateMetricEntity(1, 10, CompareTypeWinIfPresent, false, []int64{5}),
	}}
	b := MetricVector{Metrics: []MetricEntity{
		CreateMetricEntity(1, 10, CompareTypeWinIfPresent, false, []int64{5}),
	}}
	assert.Equal(t, CompareTie, CompareMetricVectors(a, b))
}

func TestCompareMetricVectorsWinIfNotPresent(t *testing.T) {
	a := MetricVector{Metrics: []MetricEntity{
		CreateMetricEntity(MetricEntityOpenrIGPCost, 1, CompareTypeWinIfNotPresent, false, []int64{3}),
	}}
	b := MetricVector{}

	// b lacks the entity, and CompareTypeWinIfNotPresent means the side
	// WITHOUT the entity wins.
	assert.Equal(t, CompareLooser, CompareMetricVectors(a, b))
	assert.Equal(t, CompareWinner, CompareMetricVectors(b, a))
}

func TestCompareMetricVectorsMismatchedEntityIsError(t *testing.T) {
	a := MetricVector{Metrics: []MetricEntity{
		CreateMetricEntity(1, 10, CompareTypeWinIfPresent, false, []int64{5}),
	}}
	b := MetricVector{Metrics: []MetricEntity{
		CreateMetricEntity(1, 10, CompareTypeWinIfNotPresent, false, []int64{5}),
	}}
	assert.Equal(t, CompareError, CompareMetricVectors(a, b))
}

func TestIsMplsLabelValid(t *testing.T) {
	assert.True(t, IsMplsLabelValid(16))
	assert.False(t, IsMplsLabelValid(0))
	assert.False(t, IsMplsLabelValid(-1))
	assert.False(t, IsMplsLabelValid(1<<20))
}

func TestNextHopKeyDedup(t *testing.T) {
	n1 := NextHop{Iface: "eth0"}
	n2 := NextHop{Iface: "eth0"}
	n3 := NextHop{Iface: "eth1"}
	assert.Equal(t, n1.Key(), n2.Key())
	assert.NotEqual(t, n1.Key(), n3.Key())
}
