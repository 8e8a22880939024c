package inference

import "fmt"

const (
	veryConfidentThreshold   = 80.0
	fairlyConfidentThreshold = 60.0
	clearLeadGap             = 20.0
)

// GenerateInsight turns a ranked prediction list into a short confidence
// narrative about the top guess.
func GenerateInsight(preds []Prediction) string {
	if len(preds) == 0 {
		return "The model has not found any predictions."
	}

	top := preds[0]
	level := "still uncertain"
	switch {
	case top.Confidence >= veryConfidentThreshold:
		level = "very confident"
	case top.Confidence >= fairlyConfidentThreshold:
		level = "fairly confident"
	}

	runnerUp := ""
	if len(preds) > 1 {
		gap := top.Confidence - preds[1].Confidence
		if gap >= clearLeadGap {
			runnerUp = fmt.Sprintf(" The top prediction is clearly leading the runner-up (%.2f points).", gap)
		} else {
			runnerUp = " The prediction gap is narrow, so the object may look ambiguous."
		}
	}

	return fmt.Sprintf("The model is %s that the main object is '%s' with confidence %.2f%%.%s",
		level, top.Label, top.Confidence, runnerUp)
}
