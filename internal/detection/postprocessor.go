package detection

// Postprocessor filters or modifies a list of detections.
type Postprocessor func([]Detection) []Detection

// NewScoreFilter returns a postprocessor that keeps detections whose
// confidence is at least conf.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Confidence >= conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewClassFilter returns a postprocessor that keeps detections of one class.
func NewClassFilter(classID int) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.ClassID == classID {
				out = append(out, d)
			}
		}
		return out
	}
}

// Apply runs the postprocessors in order.
func Apply(in []Detection, pp ...Postprocessor) []Detection {
	for _, p := range pp {
		in = p(in)
	}
	return in
}

// Best returns the detection with the highest confidence. On exact ties the
// earliest one wins. The second result is false when dets is empty.
func Best(dets []Detection) (Detection, bool) {
	if len(dets) == 0 {
		return Detection{}, false
	}

	best := dets[0]
	for _, d := range dets[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	return best, true
}
