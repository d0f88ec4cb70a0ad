package timeframe

import "time"

// TimeFrame is a parsed window pinned to the moment it was parsed.
type TimeFrame struct {
	Window Window
	Now    time.Time
}

// Since returns the first instant inside the frame.
func (tf *TimeFrame) Since() time.Time {
	return tf.Window.Since(tf.Now)
}

// TimeFrameParser turns request parameters into a TimeFrame.
type TimeFrameParser struct {
	timeProvider TimeProvider
}

// NewTimeFrameParser creates a parser; the optional provider replaces the
// system clock.
func NewTimeFrameParser(timeProvider ...TimeProvider) *TimeFrameParser {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}

	return &TimeFrameParser{
		timeProvider: provider,
	}
}

// Parse reads a window value such as "30" or "all".
func (p *TimeFrameParser) Parse(raw string) (*TimeFrame, error) {
	window, err := ParseWindow(raw)
	if err != nil {
		return nil, err
	}
	return &TimeFrame{
		Window: window,
		Now:    p.timeProvider.Now(time.UTC),
	}, nil
}
