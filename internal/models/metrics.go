package models

import "time"

// Feature names in the order the anomaly model consumes them.
const (
	FeatureCPUUtilization = "cpu_utilization"
	FeatureMemoryUsage    = "memory_usage"
)

// FeatureNames is the schema shared by the training and serving paths.
var FeatureNames = []string{FeatureCPUUtilization, FeatureMemoryUsage}

// MetricSample is a single host observation produced by an external metrics source.
type MetricSample struct {
	Timestamp      time.Time
	CPUUtilization float64
	MemoryUsage    float64
}

// Features extracts the feature vector, ignoring every other field.
func (s MetricSample) Features() FeatureVector {
	return FeatureVector{CPUUtilization: s.CPUUtilization, MemoryUsage: s.MemoryUsage}
}

// FeatureVector is the only input the anomaly model accepts.
type FeatureVector struct {
	CPUUtilization float64
	MemoryUsage    float64
}

// Values returns the vector in schema order.
func (v FeatureVector) Values() []float64 {
	return []float64{v.CPUUtilization, v.MemoryUsage}
}

// Verdict is the serving-path output.
type Verdict struct {
	IsAnomaly      bool    `json:"is_anomaly"`
	CPUUtilization float64 `json:"cpu_utilization"`
	MemoryUsage    float64 `json:"memory_usage"`
}

// SameSchema reports whether names matches FeatureNames exactly, order included.
func SameSchema(names []string) bool {
	if len(names) != len(FeatureNames) {
		return false
	}
	for i, name := range names {
		if name != FeatureNames[i] {
			return false
		}
	}
	return true
}
