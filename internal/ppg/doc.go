// Package ppg turns raw photoplethysmography samples into heartbeats.
//
// The chain runs once per consumed sample, on the main loop only:
//
//	raw -> MovingAverage -> Detector (adaptive threshold) -> Estimator -> hrv.Recording
//
// Pipeline composes the stages and optionally reports every Reading to a
// Sink, which is how the live monitor draws its trace while the timed
// sessions run the same chain without output.
package ppg
