package media_downloader

// ProgressUpdate is the normalized progress signal consumed by the presentation layer.
type ProgressUpdate struct {
	Percent float64
	Status  string
	Speed   string
}

type ProgressSink func(ProgressUpdate)

// A ProgressReporter relays progress from a Backend to a sink, remembering the last reported percentage. Both a nil
// *ProgressReporter and a nil sink are valid and discard updates.
type ProgressReporter struct {
	sink        ProgressSink
	lastPercent float64
}

func NewProgressReporter(sink ProgressSink) *ProgressReporter {
	return &ProgressReporter{sink: sink}
}

func (r *ProgressReporter) Update(percent float64, status string, speed string) {
	if r == nil {
		return
	}
	r.lastPercent = percent
	if r.sink != nil {
		r.sink(ProgressUpdate{Percent: percent, Status: status, Speed: speed})
	}
}

func (r *ProgressReporter) LastPercent() float64 {
	if r == nil {
		return 0
	}
	return r.lastPercent
}
