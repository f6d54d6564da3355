package fusion

import (
	"math"

	"eaglearn-be/internal/entity"
)

// Neutral head pose bands in degrees. Deviation beyond a band degrades the
// posture score linearly.
const (
	neutralPitchBand = 15.0
	neutralYawBand   = 20.0
	neutralRollBand  = 10.0
	postureFalloff   = 45.0
)

// screen centroid in normalized coordinates
const (
	centroidX = 0.5
	centroidY = 0.5
)

const defaultScore = 50.0

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// focusScore measures gaze proximity to the screen centroid, weighted by
// per-sample confidence. Samples below 0.5 confidence are too unreliable to
// count. Returns ok=false when no usable gaze sample arrived, in which case
// the caller carries the previous window's score forward.
func focusScore(gaze []*entity.Observation) (float64, bool) {
	var weightedDist, weights float64
	for _, o := range gaze {
		if o.Confidence <= 0.5 || len(o.Payload) < 2 {
			continue
		}
		dx := o.Payload[0] - centroidX
		dy := o.Payload[1] - centroidY
		weightedDist += math.Sqrt(dx*dx+dy*dy) * o.Confidence
		weights += o.Confidence
	}
	if weights == 0 {
		return 0, false
	}
	avgDist := weightedDist / weights
	return clampScore((1.0 - avgDist*2.0) * 100), true
}

// engagementScore blends the share of high-confidence gaze detections with
// the share of forward-facing poses.
func engagementScore(gaze, pose []*entity.Observation) float64 {
	gazePart := 0.5
	if len(gaze) > 0 {
		highConf := 0
		for _, o := range gaze {
			if o.Confidence > 0.7 {
				highConf++
			}
		}
		gazePart = float64(highConf) / float64(len(gaze))
	}

	posePart := 0.5
	if len(pose) > 0 {
		forward := 0
		for _, o := range pose {
			if len(o.Payload) < 2 {
				continue
			}
			if math.Abs(o.Payload[1]) < 20 && math.Abs(o.Payload[0]) < 20 {
				forward++
			}
		}
		posePart = float64(forward) / float64(len(pose))
	}

	return clampScore((gazePart + posePart) / 2.0 * 100)
}

// postureScore penalizes deviation beyond the neutral pitch/yaw/roll bands.
func postureScore(pose []*entity.Observation) float64 {
	if len(pose) == 0 {
		return defaultScore
	}
	var total float64
	counted := 0
	for _, o := range pose {
		if len(o.Payload) < 3 {
			continue
		}
		deviation := math.Max(0, math.Abs(o.Payload[0])-neutralPitchBand)/postureFalloff +
			math.Max(0, math.Abs(o.Payload[1])-neutralYawBand)/postureFalloff +
			math.Max(0, math.Abs(o.Payload[2])-neutralRollBand)/postureFalloff
		total += clampScore((1.0 - deviation) * 100)
		counted++
	}
	if counted == 0 {
		return defaultScore
	}
	return total / float64(counted)
}

// stressScore is the most recent overlapping stress level scaled to [0,100].
// High means stressed; the overall combination inverts it.
func stressScore(stress *entity.Observation) float64 {
	if stress == nil || len(stress.Payload) < 1 {
		return defaultScore
	}
	return clampScore(stress.Payload[0] * 100)
}

// overallScore is the fixed convex combination of the components. Stress
// enters inverted so a calm window raises the result.
func overallScore(focus, engagement, stress, posture float64) float64 {
	return clampScore(entity.WeightFocus*focus +
		entity.WeightEngagement*engagement +
		entity.WeightStress*(100-stress) +
		entity.WeightPosture*posture)
}

// contributingConfidence is the arrival-count-weighted mean confidence over
// every observation that fed the window.
func contributingConfidence(groups ...[]*entity.Observation) float64 {
	var sum float64
	count := 0
	for _, g := range groups {
		for _, o := range g {
			sum += o.Confidence
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
